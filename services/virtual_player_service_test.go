package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbound/server/messages"
	"gridbound/server/models"
)

func virtualFixture(t *testing.T, aggressive bool) (*Engine, *fakeTransport, *GameSession, *models.Player) {
	t.Helper()
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(6)
	bot := testPlayer("bot", 4)
	bot.IsVirtual = true
	bot.IsAggressive = aggressive
	placePlayer(m, bot, models.Position{X: 0, Y: 0})

	session := testSession(testRoom(m, bot))
	t.Cleanup(func() {
		if session.Timer != nil {
			session.Timer.Stop()
		}
		if session.CombatTimer != nil {
			session.CombatTimer.Stop()
		}
	})
	return eng, transport, session, bot
}

func TestVirtualTurnSkippedWhenPreempted(t *testing.T) {
	eng, transport, session, bot := virtualFixture(t, true)
	session.TurnActive = false

	eng.Virtual.playTurn(session, bot)

	assert.Empty(t, transport.events, "a pre-empted virtual turn does nothing")
}

func TestAggressiveVirtualAttacksAdjacentOpponent(t *testing.T) {
	eng, transport, session, bot := virtualFixture(t, true)
	target := testPlayer("p2", 4)
	placePlayer(session.Room.Map, target, models.Position{X: 1, Y: 0})
	session.Room.Players = append(session.Room.Players, target)

	eng.Virtual.playTurn(session, bot)

	require.NotNil(t, session.Combat)
	assert.Equal(t, 1, transport.count(messages.EventCombatStarted))
	assert.True(t, bot.HasActed)
}

func TestDefensiveVirtualCollectsDefensiveItemAndEndsTurn(t *testing.T) {
	eng, transport, session, bot := virtualFixture(t, false)
	shield := &models.Item{Type: models.ItemShield, Position: models.Position{X: 2, Y: 0}}
	session.Room.Map.TileAt(shield.Position).Item = shield

	eng.Virtual.playTurn(session, bot)

	require.Len(t, bot.Inventory, 1)
	assert.Equal(t, models.ItemShield, bot.Inventory[0].Type)
	assert.False(t, session.TurnActive, "the virtual player ends its own turn")
	assert.Equal(t, 1, transport.count(messages.EventTurnEnded))
}

func TestVirtualRandomMoveWhenNothingApplies(t *testing.T) {
	eng, _, session, bot := virtualFixture(t, false)
	origin := bot.Position

	eng.Virtual.playTurn(session, bot)

	assert.NotEqual(t, origin, bot.Position, "an empty map still gets a random move")
	assert.False(t, session.TurnActive)
}

func TestAffordablePrefixTruncatesAtBudget(t *testing.T) {
	eng, _, session, bot := virtualFixture(t, false)
	m := session.Room.Map
	m.Grid[0][2].Type = models.TileWater
	bot.Attributes.CurrentSpeed = 2

	full := []models.Position{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	prefix := eng.Virtual.affordablePrefix(m, bot, full)

	// grass 1 fits, water 2 would overdraw the remaining 1
	require.Len(t, prefix, 1)
	assert.Equal(t, models.Position{X: 1, Y: 0}, prefix[0])
}

func TestPathToReachableItemFindsClosestWanted(t *testing.T) {
	eng, _, session, bot := virtualFixture(t, false)
	m := session.Room.Map
	far := &models.Item{Type: models.ItemShield, Position: models.Position{X: 3, Y: 0}}
	near := &models.Item{Type: models.ItemShield, Position: models.Position{X: 0, Y: 1}}
	sword := &models.Item{Type: models.ItemSword, Position: models.Position{X: 1, Y: 0}}
	m.TileAt(far.Position).Item = far
	m.TileAt(near.Position).Item = near
	m.TileAt(sword.Position).Item = sword

	path := eng.Virtual.pathToReachableItem(session, bot, models.DefensiveItems)
	require.NotEmpty(t, path)
	assert.Equal(t, near.Position, path[len(path)-1], "the closest wanted item wins")
}

func TestPathTowardNearestClosesDistanceToOpponent(t *testing.T) {
	eng, _, session, bot := virtualFixture(t, true)
	bot.Attributes.CurrentSpeed = 2
	opponent := testPlayer("p2", 4)
	placePlayer(session.Room.Map, opponent, models.Position{X: 5, Y: 0})
	session.Room.Players = append(session.Room.Players, opponent)

	path := eng.Virtual.pathTowardNearest(session, bot, true, nil)
	require.NotEmpty(t, path)
	assert.LessOrEqual(t, len(path), 2, "the walk is truncated to the speed budget")
	assert.Equal(t, 0, path[len(path)-1].Y)
	assert.Greater(t, path[len(path)-1].X, 0, "each step closes distance along the row")
}

func TestVirtualTurnsOfSeparateRoomsRunConcurrently(t *testing.T) {
	cfg := testConfig()
	cfg.ThinkingDelayMin = 350 * time.Millisecond
	cfg.ThinkingDelayMax = 350 * time.Millisecond
	transport := &fakeTransport{}
	eng := NewEngine(cfg, &scriptRand{}, transport, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Virtual.Run(ctx)

	sessions := make([]*GameSession, 2)
	for i, id := range []string{"bot-a", "bot-b"} {
		m := grassMap(6)
		bot := testPlayer(id, 4)
		bot.IsVirtual = true
		placePlayer(m, bot, models.Position{X: 0, Y: 0})
		sessions[i] = testSession(testRoom(m, bot))
	}

	for _, session := range sessions {
		eng.Turns.virtualTurns <- VirtualTurn{Session: session, Player: session.Room.Players[0]}
	}

	// serialized turns would need two full thinking delays back to back
	require.Eventually(t, func() bool {
		for _, session := range sessions {
			session.mu.Lock()
			active := session.TurnActive
			session.mu.Unlock()
			if active {
				return false
			}
		}
		return true
	}, 600*time.Millisecond, 10*time.Millisecond,
		"one room's thinking time must not stall the other room's turn")
}
