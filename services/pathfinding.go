package services

import (
	"container/heap"
	"sort"

	"gridbound/server/models"
)

// BoundsCheck reports whether pos lies inside the map grid
func BoundsCheck(m *models.GameMap, pos models.Position) bool {
	return pos.Y >= 0 && pos.Y < len(m.Grid) && pos.X >= 0 && pos.X < len(m.Grid[pos.Y])
}

// IsValidTile reports whether a player could stand at (x, y): in bounds,
// not rock, not a closed door, and not occupied by another player.
func IsValidTile(m *models.GameMap, x, y int) bool {
	pos := models.Position{X: x, Y: y}
	if !BoundsCheck(m, pos) {
		return false
	}
	tile := m.TileAt(pos)
	return tile.Type.Traversable() && tile.Player == nil
}

// IsAdjacent reports whether a and b touch in the 4-neighborhood
func IsAdjacent(a, b models.Position) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}

// AdjacentTiles returns the in-bounds 4-neighborhood of pos
func AdjacentTiles(m *models.GameMap, pos models.Position) []models.Position {
	candidates := []models.Position{
		{X: pos.X, Y: pos.Y - 1},
		{X: pos.X, Y: pos.Y + 1},
		{X: pos.X - 1, Y: pos.Y},
		{X: pos.X + 1, Y: pos.Y},
	}
	tiles := make([]models.Position, 0, 4)
	for _, c := range candidates {
		if BoundsCheck(m, c) {
			tiles = append(tiles, c)
		}
	}
	return tiles
}

// costNode is one priority-queue entry of the reachability expansion
type costNode struct {
	pos  models.Position
	cost int
}

type costQueue []costNode

func (q costQueue) Len() int            { return len(q) }
func (q costQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q costQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *costQueue) Push(x interface{}) { *q = append(*q, x.(costNode)) }
func (q *costQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ReachableTiles returns every valid tile whose cumulative weighted cost
// from the player's position fits within the player's current speed.
// The player's own tile is not part of the result. A nil player or map
// yields nothing reachable rather than an error.
func ReachableTiles(m *models.GameMap, player *models.Player) []models.Position {
	if m == nil || player == nil {
		return nil
	}
	budget := player.Attributes.CurrentSpeed
	if budget < 0 {
		return nil
	}

	visited := map[models.Position]bool{player.Position: true}
	queue := &costQueue{{pos: player.Position, cost: 0}}
	heap.Init(queue)

	var reachable []models.Position
	for queue.Len() > 0 {
		node := heap.Pop(queue).(costNode)
		for _, next := range AdjacentTiles(m, node.pos) {
			if visited[next] {
				continue
			}
			visited[next] = true
			if !IsValidTile(m, next.X, next.Y) {
				continue
			}
			cost := node.cost + m.TileAt(next).Type.Weight()
			if cost > budget {
				continue
			}
			reachable = append(reachable, next)
			heap.Push(queue, costNode{pos: next, cost: cost})
		}
	}
	return reachable
}

// FindPath runs a breadth-first search over valid tiles from the player's
// position to target. The returned path excludes the starting tile. A
// target equal to the player's position returns the singleton path and an
// unreachable target returns nil.
func FindPath(player *models.Player, target models.Position, m *models.GameMap) []models.Position {
	if m == nil || player == nil || !BoundsCheck(m, target) {
		return nil
	}
	start := player.Position
	if start == target {
		return []models.Position{target}
	}

	parents := map[models.Position]models.Position{start: start}
	queue := []models.Position{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range AdjacentTiles(m, current) {
			if _, seen := parents[next]; seen {
				continue
			}
			if !IsValidTile(m, next.X, next.Y) {
				continue
			}
			parents[next] = current
			if next == target {
				return rebuildPath(parents, start, target)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func rebuildPath(parents map[models.Position]models.Position, start, target models.Position) []models.Position {
	var path []models.Position
	for at := target; at != start; at = parents[at] {
		path = append(path, at)
	}
	// reverse into start→target order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// NearestPositions ranks every valid tile by Chebyshev distance from the
// player and returns as many as the player carries items. Used to scatter
// a defeated player's inventory onto nearby free tiles.
func NearestPositions(player *models.Player, m *models.GameMap) []models.Position {
	if m == nil || player == nil || len(player.Inventory) == 0 {
		return nil
	}
	var valid []models.Position
	for y := range m.Grid {
		for x := range m.Grid[y] {
			if IsValidTile(m, x, y) && m.Grid[y][x].Item == nil {
				valid = append(valid, models.Position{X: x, Y: y})
			}
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return chebyshev(valid[i], player.Position) < chebyshev(valid[j], player.Position)
	})
	if len(valid) > len(player.Inventory) {
		valid = valid[:len(player.Inventory)]
	}
	return valid
}

func chebyshev(a, b models.Position) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// CountValidTiles scans the full grid for tiles a player could stand on
func CountValidTiles(m *models.GameMap) int {
	count := 0
	for y := range m.Grid {
		for x := range m.Grid[y] {
			if IsValidTile(m, x, y) {
				count++
			}
		}
	}
	return count
}

// CountDoors scans the full grid for door tiles, open or closed
func CountDoors(m *models.GameMap) int {
	count := 0
	for y := range m.Grid {
		for x := range m.Grid[y] {
			t := m.Grid[y][x].Type
			if t == models.TileOpenDoor || t == models.TileClosedDoor {
				count++
			}
		}
	}
	return count
}
