package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbound/server/models"
)

func TestStatsFinalizeAggregatesAndStops(t *testing.T) {
	stats := NewStatsService(nil)

	m := grassMap(4)
	m.Grid[0][1].Type = models.TileClosedDoor
	m.Grid[0][2].Type = models.TileOpenDoor
	room := testRoom(m, testPlayer("p1", 4), testPlayer("p2", 4))
	stats.InitRoom(room)

	stats.TileVisited(room.Code, "p1", models.Position{X: 1, Y: 1})
	stats.TileVisited(room.Code, "p1", models.Position{X: 1, Y: 1}) // duplicates collapse
	stats.TileVisited(room.Code, "p2", models.Position{X: 2, Y: 2})
	stats.DoorToggled(room.Code, models.Position{X: 1, Y: 0})
	stats.CombatStarted(room.Code, "p1", "p2")
	stats.CombatWon(room.Code, "p1")
	stats.CombatLost(room.Code, "p2")
	stats.ItemCollected(room.Code, "p1")
	stats.Log(room.Code, "something happened", "p1")

	result := stats.Finalize(room.Code, "p1")
	require.NotNil(t, result)

	assert.Equal(t, "p1", result.Winner)
	assert.Equal(t, 2, result.TilesVisited)
	assert.Equal(t, 1, result.DoorsToggled)
	assert.InDelta(t, 0.5, result.DoorRatio, 1e-9, "one of two doors was touched")
	assert.Len(t, result.Log, 1)
	require.Len(t, result.Players, 2)

	byID := map[string]models.PlayerStats{}
	for _, ps := range result.Players {
		byID[ps.PlayerID] = ps
	}
	assert.Equal(t, 1, byID["p1"].TilesVisited)
	assert.Equal(t, 1, byID["p1"].Combats)
	assert.Equal(t, 1, byID["p1"].CombatsWon)
	assert.Equal(t, 1, byID["p1"].ItemsCollected)
	assert.Equal(t, 1, byID["p2"].CombatsLost)

	assert.Nil(t, stats.Finalize(room.Code, "p1"), "a room finalizes once")
}

func TestStatsIgnoreUntrackedRooms(t *testing.T) {
	stats := NewStatsService(nil)

	assert.NotPanics(t, func() {
		stats.Log("nope", "message")
		stats.TileVisited("nope", "p1", models.Position{})
		stats.CombatWon("nope", "p1")
	})
	assert.Nil(t, stats.Finalize("nope", ""))
}
