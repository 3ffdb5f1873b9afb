package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbound/server/messages"
	"gridbound/server/models"
)

func TestMovePlayerSpeedExhaustionEndsTurn(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	m.Grid[1][2].Type = models.TileWater
	mover := testPlayer("p1", 2)
	placePlayer(m, mover, models.Position{X: 0, Y: 1})
	other := testPlayer("p2", 4)
	placePlayer(m, other, models.Position{X: 4, Y: 4})

	session := testSession(testRoom(m, mover, other))

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 1}, {X: 2, Y: 1}})

	// grass costs 1, water costs 2: 2-1-2 = -1 and the walk ends there
	assert.Equal(t, -1, mover.Attributes.CurrentSpeed)
	assert.Equal(t, models.Position{X: 2, Y: 1}, mover.Position)

	// nothing left to do, so the turn was force-ended
	assert.False(t, session.TurnActive)
	assert.Equal(t, 1, transport.count(messages.EventTurnEnded))
	assert.True(t, session.MovementUnlocked)
}

func TestMovePlayerOccupancyMovesWithThePlayer(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))

	path := []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}}
	eng.Movement.MovePlayer("p1", session, path)

	occupied := 0
	for y := range m.Grid {
		for x := range m.Grid[y] {
			if m.Grid[y][x].Player == mover {
				occupied++
				assert.Equal(t, models.Position{X: x, Y: y}, mover.Position)
			}
		}
	}
	assert.Equal(t, 1, occupied, "exactly one tile may claim the player")
}

func TestMovePlayerLockedIsSilentNoOp(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))
	session.MovementUnlocked = false

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 0}})

	assert.Equal(t, models.Position{X: 0, Y: 0}, mover.Position)
	assert.Empty(t, transport.events)
}

func TestMovePlayerSlipEndsTurnInPlace(t *testing.T) {
	rng := &scriptRand{floats: []float64{0.0}} // forces the slip roll
	eng, transport := newTestEngine(rng)

	m := grassMap(5)
	m.Grid[0][1].Type = models.TileIce
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}})

	assert.Equal(t, models.Position{X: 1, Y: 0}, mover.Position, "the slip strands the player on the ice")
	assert.False(t, session.TurnActive)
	assert.Equal(t, 1, transport.count(messages.EventTurnEnded))
}

func TestMovePlayerBootsPreventSlipping(t *testing.T) {
	rng := &scriptRand{floats: []float64{0.0, 0.0}}
	eng, _ := newTestEngine(rng)

	m := grassMap(5)
	m.Grid[0][1].Type = models.TileIce
	mover := testPlayer("p1", 4)
	mover.Inventory = []models.Item{{Type: models.ItemBoots}}
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}})

	assert.Equal(t, models.Position{X: 2, Y: 0}, mover.Position)
}

func TestMovePlayerFlagHomeWinsTheGame(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	mover.Position = models.Position{X: 2, Y: 0} // away from home, carrying the flag
	m.TileAt(models.Position{X: 0, Y: 0}).Player = nil
	m.TileAt(mover.Position).Player = mover
	mover.HasFlag = true
	mover.Inventory = []models.Item{{Type: models.ItemFlag}}

	session := testSession(testRoom(m, mover))

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 0}, {X: 0, Y: 0}})

	assert.Equal(t, 1, transport.count(messages.EventGameOver))
	assert.False(t, session.Room.IsActive)
	ev, ok := transport.last(messages.EventGameOver)
	require.True(t, ok)
	assert.Equal(t, "p1", ev.Payload.(messages.GameOverMessage).WinnerID)
}

func TestMovePlayerStopsOnItemForPickup(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	sword := &models.Item{Type: models.ItemSword, Position: models.Position{X: 1, Y: 0}}
	m.TileAt(sword.Position).Item = sword
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))

	eng.Movement.MovePlayer("p1", session, []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}})

	// the walk stops on the item tile and the item moves into the inventory
	assert.Equal(t, models.Position{X: 1, Y: 0}, mover.Position)
	require.Len(t, mover.Inventory, 1)
	assert.Equal(t, models.ItemSword, mover.Inventory[0].Type)
	assert.Nil(t, m.TileAt(models.Position{X: 1, Y: 0}).Item)
}

func TestTeleportRequiresDebugMode(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	mover := testPlayer("p1", 4)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, mover))

	eng.Movement.TeleportPlayer("p1", session, models.Position{X: 3, Y: 3})
	assert.Equal(t, models.Position{X: 0, Y: 0}, mover.Position)

	session.DebugMode = true
	eng.Movement.TeleportPlayer("p1", session, models.Position{X: 3, Y: 3})
	assert.Equal(t, models.Position{X: 3, Y: 3}, mover.Position)

	// an invalid destination is rejected silently
	m.Grid[4][4].Type = models.TileRock
	eng.Movement.TeleportPlayer("p1", session, models.Position{X: 4, Y: 4})
	assert.Equal(t, models.Position{X: 3, Y: 3}, mover.Position)
}

func TestMovePlayerStopsWhenTurnEndsMidWalk(t *testing.T) {
	cfg := testConfig()
	cfg.MoveStepDelay = 50 * time.Millisecond
	transport := &fakeTransport{}
	eng := NewEngine(cfg, &scriptRand{}, transport, nil)

	m := grassMap(8)
	mover := testPlayer("p1", 8)
	placePlayer(m, mover, models.Position{X: 0, Y: 0})
	other := testPlayer("p2", 8)
	placePlayer(m, other, models.Position{X: 7, Y: 7})
	session := testSession(testRoom(m, mover, other))

	path := []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}, {X: 4, Y: 0}}
	done := make(chan struct{})
	go func() {
		eng.Movement.MovePlayer("p1", session, path)
		close(done)
	}()

	// end the turn while the walk is pacing between steps
	time.Sleep(75 * time.Millisecond)
	eng.Turns.EndTurn(session)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("the walk never returned")
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	assert.True(t, session.MovementUnlocked)
	assert.False(t, session.TurnActive)
	assert.NotEqual(t, models.Position{X: 4, Y: 0}, mover.Position, "a stale walk must not keep stepping after its turn")
	assert.Nil(t, session.Room.Map.TileAt(models.Position{X: 4, Y: 0}).Player)
}
