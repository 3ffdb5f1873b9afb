package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbound/server/messages"
	"gridbound/server/models"
)

func TestToggleDoorNonAdjacentChangesNothing(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	m.Grid[3][3].Type = models.TileClosedDoor
	player := testPlayer("p1", 4)
	placePlayer(m, player, models.Position{X: 0, Y: 0})
	room := testRoom(m, player)
	session := testSession(room)
	eng.Stats.InitRoom(room)
	transport.reset()

	eng.Actions.ToggleDoor("p1", session, models.Position{X: 3, Y: 3})

	assert.Equal(t, models.TileClosedDoor, m.Grid[3][3].Type)
	assert.False(t, player.HasActed)
	assert.Empty(t, transport.events, "a rejected toggle must not emit")

	stats := eng.Stats.Finalize(room.Code, "")
	require.NotNil(t, stats)
	assert.Zero(t, stats.DoorsToggled, "a rejected toggle must not reach the stats sink")
	assert.Empty(t, stats.Log)
}

func TestToggleDoorFlipsAndSpendsAction(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	m.Grid[0][1].Type = models.TileClosedDoor
	player := testPlayer("p1", 4)
	placePlayer(m, player, models.Position{X: 0, Y: 0})
	session := testSession(testRoom(m, player))

	eng.Actions.ToggleDoor("p1", session, models.Position{X: 1, Y: 0})

	assert.Equal(t, models.TileOpenDoor, m.Grid[0][1].Type)
	assert.True(t, player.HasActed)
	assert.Equal(t, 1, transport.count(messages.EventMapUpdated))

	// the action is spent, a second toggle is refused
	eng.Actions.ToggleDoor("p1", session, models.Position{X: 1, Y: 0})
	assert.Equal(t, models.TileOpenDoor, m.Grid[0][1].Type)
}

func TestToggleDoorRefusesClosingOccupiedDoor(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	m.Grid[0][1].Type = models.TileOpenDoor
	player := testPlayer("p1", 4)
	blocker := testPlayer("p2", 4)
	placePlayer(m, player, models.Position{X: 0, Y: 0})
	placePlayer(m, blocker, models.Position{X: 1, Y: 0})
	session := testSession(testRoom(m, player, blocker))

	eng.Actions.ToggleDoor("p1", session, models.Position{X: 1, Y: 0})

	assert.Equal(t, models.TileOpenDoor, m.Grid[0][1].Type)
	assert.False(t, player.HasActed)
}

func TestUpdatePlayerAttributesIsIdempotentForUnchangedInventory(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	player := testPlayer("p1", 4)
	placePlayer(m, player, models.Position{X: 2, Y: 2})
	session := testSession(testRoom(m, player))

	potion := &models.Item{Type: models.ItemPotion, Position: player.Position}
	m.TileAt(player.Position).Item = potion

	eng.Actions.UpdatePlayerAttributes("p1", session, []models.Item{{Type: models.ItemPotion}})
	assert.Equal(t, 3, player.Attributes.LifePoints)
	assert.Equal(t, 6, player.Attributes.SpeedPoints)

	// re-sending the same inventory must not double-apply the effects
	eng.Actions.UpdatePlayerAttributes("p1", session, []models.Item{{Type: models.ItemPotion}})
	assert.Equal(t, 3, player.Attributes.LifePoints)
	assert.Equal(t, 6, player.Attributes.SpeedPoints)
}

func TestUpdatePlayerAttributesRemovalDropsItemOnTile(t *testing.T) {
	eng, transport := newTestEngine(&scriptRand{})

	m := grassMap(5)
	player := testPlayer("p1", 4)
	player.Attributes.SpeedPoints = 6
	player.Attributes.LifePoints = 3
	player.Inventory = []models.Item{{Type: models.ItemPotion}}
	placePlayer(m, player, models.Position{X: 2, Y: 2})
	session := testSession(testRoom(m, player))

	eng.Actions.UpdatePlayerAttributes("p1", session, nil)

	assert.Empty(t, player.Inventory)
	assert.Equal(t, 4, player.Attributes.LifePoints, "removing the potion reverses its effect")
	assert.Equal(t, 4, player.Attributes.SpeedPoints)
	tile := m.TileAt(player.Position)
	require.NotNil(t, tile.Item)
	assert.Equal(t, models.ItemPotion, tile.Item.Type)
	assert.Equal(t, 1, transport.count(messages.EventAttributes))
}

func TestUpdatePlayerAttributesRejectsOverCapacity(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	player := testPlayer("p1", 4)
	placePlayer(m, player, models.Position{X: 2, Y: 2})
	session := testSession(testRoom(m, player))

	eng.Actions.UpdatePlayerAttributes("p1", session, []models.Item{
		{Type: models.ItemSword}, {Type: models.ItemShield}, {Type: models.ItemBoots},
	})
	assert.Empty(t, player.Inventory)
}

func TestPrioritizeItemsKeepsDispositionMatches(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	aggressive := testPlayer("p1", 4)
	aggressive.IsAggressive = true
	candidates := []models.Item{
		{Type: models.ItemShield},
		{Type: models.ItemSword},
		{Type: models.ItemTrap},
	}

	kept, discarded := eng.Actions.PrioritizeItems(aggressive, candidates)
	require.Len(t, kept, 2)
	assert.Equal(t, models.ItemSword, kept[0].Type)
	assert.Equal(t, models.ItemTrap, kept[1].Type)
	assert.Equal(t, models.ItemShield, discarded.Type)

	defensive := testPlayer("p2", 4)
	kept, discarded = eng.Actions.PrioritizeItems(defensive, candidates)
	require.Len(t, kept, 2)
	assert.Equal(t, models.ItemShield, kept[0].Type)
	assert.NotEqual(t, models.ItemShield, discarded.Type)
}

func TestCheckForMysteryResolvesWithoutDuplicates(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	sword := &models.Item{Type: models.ItemSword, Position: models.Position{X: 0, Y: 0}}
	m.TileAt(sword.Position).Item = sword
	mystery := &models.Item{Type: models.ItemMystery, Position: models.Position{X: 3, Y: 3}}
	m.TileAt(mystery.Position).Item = mystery
	session := testSession(testRoom(m, testPlayer("p1", 4)))

	eng.Actions.CheckForMystery(session)

	resolved := m.TileAt(models.Position{X: 3, Y: 3}).Item
	require.NotNil(t, resolved)
	assert.NotEqual(t, models.ItemMystery, resolved.Type)
	assert.NotEqual(t, models.ItemSword, resolved.Type, "mystery resolution never duplicates a visible item")
	assert.Contains(t, models.AllPickupItems, resolved.Type)
}

func TestCheckForMysteryClearsSurplusBoxes(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	// every concrete type is already on the map
	for i, itemType := range models.AllPickupItems {
		item := &models.Item{Type: itemType, Position: models.Position{X: i % 3, Y: i / 3}}
		m.TileAt(item.Position).Item = item
	}
	mystery := &models.Item{Type: models.ItemMystery, Position: models.Position{X: 3, Y: 3}}
	m.TileAt(mystery.Position).Item = mystery
	session := testSession(testRoom(m, testPlayer("p1", 4)))

	eng.Actions.CheckForMystery(session)

	assert.Nil(t, m.TileAt(models.Position{X: 3, Y: 3}).Item, "a box with nothing left to become disappears")
}

func TestPlayerHasNearbyAction(t *testing.T) {
	eng, _ := newTestEngine(&scriptRand{})

	m := grassMap(5)
	player := testPlayer("p1", 4)
	placePlayer(m, player, models.Position{X: 2, Y: 2})
	session := testSession(testRoom(m, player))

	assert.False(t, eng.Actions.PlayerHasNearbyAction(session, player))

	m.Grid[2][3].Type = models.TileClosedDoor
	assert.True(t, eng.Actions.PlayerHasNearbyAction(session, player))

	m.Grid[2][3].Type = models.TileGrass
	other := testPlayer("p2", 4)
	placePlayer(m, other, models.Position{X: 2, Y: 1})
	assert.True(t, eng.Actions.PlayerHasNearbyAction(session, player))
}
