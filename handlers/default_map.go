package handlers

import "gridbound/server/models"

// DefaultMap builds the built-in 10x10 capture-the-flag map used when
// the host starts a game without supplying one. It carries one start
// marker per player, a centered flag, two mystery boxes and a handful
// of concrete items.
func DefaultMap(playerCount int) *models.GameMap {
	m := models.NewGameMap("standard", 10, models.ModeCaptureTheFlag)

	// a water channel down the middle with a door crossing
	for y := 2; y <= 7; y++ {
		m.Grid[y][4].Type = models.TileWater
	}
	m.Grid[4][4].Type = models.TileOpenDoor
	m.Grid[5][4].Type = models.TileClosedDoor

	// an ice patch and a short rock wall
	for _, pos := range []models.Position{{X: 6, Y: 2}, {X: 7, Y: 2}, {X: 6, Y: 3}, {X: 7, Y: 3}} {
		m.Grid[pos.Y][pos.X].Type = models.TileIce
	}
	m.Grid[5][2].Type = models.TileRock
	m.Grid[5][3].Type = models.TileRock

	starts := []models.Position{{X: 1, Y: 1}, {X: 8, Y: 8}, {X: 8, Y: 1}, {X: 1, Y: 8}}
	if playerCount < len(starts) {
		starts = starts[:playerCount]
	}
	for _, pos := range starts {
		placeItem(m, models.ItemStart, pos)
	}

	placeItem(m, models.ItemFlag, models.Position{X: 5, Y: 5})
	placeItem(m, models.ItemMystery, models.Position{X: 2, Y: 2})
	placeItem(m, models.ItemMystery, models.Position{X: 7, Y: 7})
	placeItem(m, models.ItemSword, models.Position{X: 8, Y: 4})
	placeItem(m, models.ItemShield, models.Position{X: 1, Y: 6})
	placeItem(m, models.ItemPotion, models.Position{X: 5, Y: 1})

	return m
}

func placeItem(m *models.GameMap, t models.ItemType, pos models.Position) {
	item := models.Item{Type: t, Position: pos}
	m.Items = append(m.Items, item)
	// the grid holds its own copy; it is the authoritative one
	m.TileAt(pos).Item = &item
}
