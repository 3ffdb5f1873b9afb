package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/models"
)

// VirtualPlayerService plays the turns of AI-controlled players. It
// consumes turn hand-offs from the turn engine's channel and drives the
// regular movement/combat/action services, so a virtual player goes
// through exactly the same code paths as a human one.
type VirtualPlayerService struct {
	cfg models.GameConfig
	rng Rand

	movement *MovementService
	combat   *CombatService
	actions  *ActionService
	turns    *TurnService
}

// Run consumes virtual-turn hand-offs until the context is cancelled.
// Meant to be launched once as its own goroutine. Each hand-off plays
// out on a goroutine of its own, so one room's thinking time never
// stalls the turns of another room.
func (vs *VirtualPlayerService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case turn := <-vs.turns.VirtualTurns():
			go vs.playTurn(turn.Session, turn.Player)
		}
	}
}

// playTurn executes one virtual player's full decision sequence
func (vs *VirtualPlayerService) playTurn(session *GameSession, player *models.Player) {
	time.Sleep(vs.thinkingDelay())
	if !vs.holdsTurn(session, player) {
		return
	}

	log.Debug().Str("room", session.Room.Code).Str("player", player.ID).
		Bool("aggressive", player.IsAggressive).Msg("virtual player acting")

	if player.IsAggressive {
		vs.playAggressive(session, player)
	} else {
		vs.playDefensive(session, player)
	}
}

// playAggressive attacks an adjacent player if possible, otherwise
// chases offensive items or the nearest opponent, falling back to a
// random move.
func (vs *VirtualPlayerService) playAggressive(session *GameSession, player *models.Player) {
	if target := vs.adjacentOpponent(session, player); target != "" {
		vs.combat.StartCombat(player.ID, target, session)
		return
	}

	path := vs.pathToReachableItem(session, player, models.OffensiveItems)
	if path == nil {
		path = vs.pathTowardNearest(session, player, true, models.OffensiveItems)
	}
	if path == nil {
		path = vs.randomMove(session, player)
	}
	if path != nil {
		vs.movement.MovePlayer(player.ID, session, path)
	}
	if !vs.holdsTurn(session, player) {
		return
	}

	// the walk may have brought an opponent into reach
	if target := vs.adjacentOpponent(session, player); target != "" {
		vs.combat.StartCombat(player.ID, target, session)
		return
	}
	vs.turns.EndTurn(session)
}

// playDefensive collects defensive items when reachable, otherwise
// shadows the nearest offensive item, falling back to a random move.
func (vs *VirtualPlayerService) playDefensive(session *GameSession, player *models.Player) {
	path := vs.pathToReachableItem(session, player, models.DefensiveItems)
	if path == nil {
		path = vs.pathTowardNearest(session, player, false, models.OffensiveItems)
	}
	if path == nil {
		path = vs.randomMove(session, player)
	}
	if path != nil {
		vs.movement.MovePlayer(player.ID, session, path)
	}
	if !vs.holdsTurn(session, player) {
		return
	}
	vs.turns.EndTurn(session)
}

// holdsTurn re-checks that the player still owns an uncontested turn.
// Combat, turn teardown or room shutdown may all have pre-empted it
// while this goroutine slept.
func (vs *VirtualPlayerService) holdsTurn(session *GameSession, player *models.Player) bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.Room.IsActive &&
		session.TurnActive &&
		session.Combat == nil &&
		session.CurrentPlayer() == player
}

// adjacentOpponent returns the id of a player on a neighboring tile, or ""
func (vs *VirtualPlayerService) adjacentOpponent(session *GameSession, player *models.Player) string {
	session.mu.Lock()
	defer session.mu.Unlock()
	if player.HasActed {
		return ""
	}
	for _, pos := range AdjacentTiles(session.Room.Map, player.Position) {
		tile := session.Room.Map.TileAt(pos)
		if tile.Player != nil && tile.Player != player {
			return tile.Player.ID
		}
	}
	return ""
}

// pathToReachableItem returns a path onto the closest reachable tile
// carrying one of the wanted item types, or nil
func (vs *VirtualPlayerService) pathToReachableItem(session *GameSession, player *models.Player, wanted []models.ItemType) []models.Position {
	session.mu.Lock()
	defer session.mu.Unlock()

	isWanted := make(map[models.ItemType]bool, len(wanted))
	for _, t := range wanted {
		isWanted[t] = true
	}

	var best []models.Position
	for _, pos := range ReachableTiles(session.Room.Map, player) {
		tile := session.Room.Map.TileAt(pos)
		if tile.Item == nil || !isWanted[tile.Item.Type] {
			continue
		}
		if path := FindPath(player, pos, session.Room.Map); path != nil {
			if best == nil || len(path) < len(best) {
				best = path
			}
		}
	}
	return best
}

// pathTowardNearest heads toward the closest of the given targets: any
// other player (when includePlayers is set) or any item of the wanted
// types anywhere on the map. The returned path is truncated to the
// affordable prefix of the full route, so the player just closes
// distance this turn.
func (vs *VirtualPlayerService) pathTowardNearest(session *GameSession, player *models.Player, includePlayers bool, wanted []models.ItemType) []models.Position {
	session.mu.Lock()
	defer session.mu.Unlock()

	isWanted := make(map[models.ItemType]bool, len(wanted))
	for _, t := range wanted {
		isWanted[t] = true
	}

	m := session.Room.Map
	var best []models.Position
	consider := func(path []models.Position) {
		if path != nil && (best == nil || len(path) < len(best)) {
			best = path
		}
	}

	for y := range m.Grid {
		for x := range m.Grid[y] {
			tile := &m.Grid[y][x]
			pos := models.Position{X: x, Y: y}
			if tile.Item != nil && isWanted[tile.Item.Type] {
				consider(FindPath(player, pos, m))
			}
			if includePlayers && tile.Player != nil && tile.Player != player {
				// walk up next to the opponent, not onto it
				for _, adj := range AdjacentTiles(m, pos) {
					if IsValidTile(m, adj.X, adj.Y) {
						consider(FindPath(player, adj, m))
					}
				}
			}
		}
	}
	return vs.affordablePrefix(m, player, best)
}

// affordablePrefix cuts a path down to the steps the player's remaining
// speed can pay for. Returns nil when not even the first step fits.
func (vs *VirtualPlayerService) affordablePrefix(m *models.GameMap, player *models.Player, path []models.Position) []models.Position {
	budget := player.Attributes.CurrentSpeed
	for i, step := range path {
		tile := m.TileAt(step)
		if tile == nil {
			return path[:i]
		}
		budget -= tile.Type.Weight()
		if budget < 0 {
			return path[:i]
		}
	}
	return path
}

// randomMove picks a uniformly random reachable tile, or nil when the
// player is boxed in
func (vs *VirtualPlayerService) randomMove(session *GameSession, player *models.Player) []models.Position {
	session.mu.Lock()
	defer session.mu.Unlock()

	tiles := ReachableTiles(session.Room.Map, player)
	if len(tiles) == 0 {
		return nil
	}
	target := tiles[vs.rng.Intn(len(tiles))]
	return FindPath(player, target, session.Room.Map)
}

func (vs *VirtualPlayerService) thinkingDelay() time.Duration {
	spread := vs.cfg.ThinkingDelayMax - vs.cfg.ThinkingDelayMin
	return vs.cfg.ThinkingDelayMin + time.Duration(vs.rng.Float64()*float64(spread))
}
