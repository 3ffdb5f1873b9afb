package services

import (
	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// ActionService covers the non-movement state changes: door toggling,
// inventory diffing with stat effects, mystery-item resolution and the
// "can this player still do anything" termination check.
type ActionService struct {
	cfg       models.GameConfig
	rng       Rand
	transport Transport
	stats     *StatsService

	turns    *TurnService
	sessions *SessionService
}

// UpdatePlayerAttributes replaces a player's inventory with newInventory,
// applying the stat deltas of the diff. At most one item counts as added
// per call; any number may be removed. Removed items land on the
// player's current tile. Current attributes are re-emitted afterwards.
func (as *ActionService) UpdatePlayerAttributes(playerID string, session *GameSession, newInventory []models.Item) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	player := session.Room.PlayerByID(playerID)
	if player == nil {
		return
	}
	as.updatePlayerAttributes(session, player, newInventory)
}

// updatePlayerAttributes requires the session lock
func (as *ActionService) updatePlayerAttributes(session *GameSession, player *models.Player, newInventory []models.Item) {
	if len(newInventory) > as.cfg.InventoryCap {
		return
	}

	added, removed := diffInventories(player.Inventory, newInventory)
	player.Inventory = newInventory

	if added != nil {
		// an added item sitting on the player's tile moves off the grid
		// in the same call, so it is never owned by both sides
		tile := session.Room.Map.TileAt(player.Position)
		if tile != nil && tile.Item != nil && tile.Item.Type == added.Type {
			tile.Item = nil
			as.transport.ToRoom(session.Room.Code, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
		}
		as.applyItemEffect(session, player, added.Type, true)
		as.stats.ItemCollected(session.Room.Code, player.ID)
		as.stats.Log(session.Room.Code, player.Name+" picked up a "+string(added.Type), player.ID)
	}
	for _, item := range removed {
		as.applyItemEffect(session, player, item.Type, false)
		as.sessions.addRejectedItem(session, player, item)
	}

	as.emitAttributes(session, player)
}

// diffInventories returns the first item present only in the new
// inventory and every item present only in the old one.
func diffInventories(oldInv, newInv []models.Item) (added *models.Item, removed []models.Item) {
	oldCounts := make(map[models.ItemType]int)
	for _, item := range oldInv {
		oldCounts[item.Type]++
	}
	for _, item := range newInv {
		if oldCounts[item.Type] > 0 {
			oldCounts[item.Type]--
			continue
		}
		if added == nil {
			item := item
			added = &item
		}
	}
	for _, item := range oldInv {
		if oldCounts[item.Type] > 0 {
			oldCounts[item.Type]--
			removed = append(removed, item)
		}
	}
	return added, removed
}

// applyItemEffect applies (or reverses) the stat deltas of one item
func (as *ActionService) applyItemEffect(session *GameSession, player *models.Player, itemType models.ItemType, add bool) {
	sign := 1
	if !add {
		sign = -1
	}
	attrs := &player.Attributes
	switch itemType {
	case models.ItemPotion:
		attrs.LifePoints -= sign
		attrs.SpeedPoints += 2 * sign
	case models.ItemBattery:
		attrs.OffensePoints += 2 * sign
		attrs.DefensePoints -= sign
	case models.ItemFlag:
		if add {
			player.HasFlag = true
			as.transport.ToRoom(session.Room.Code, messages.EventFlagTaken, messages.FlagMessage{
				PlayerID:   player.ID,
				PlayerName: player.Name,
			})
			as.stats.Log(session.Room.Code, player.Name+" picked up the flag", player.ID)
		}
		// a removed flag is cleared where it lands, see addRejectedItem
	}
}

func (as *ActionService) emitAttributes(session *GameSession, player *models.Player) {
	as.transport.ToPlayer(player.ID, messages.EventAttributes, messages.AttributesMessage{
		PlayerID:   player.ID,
		Attributes: player.Attributes,
		Inventory:  player.Inventory,
	})
}

// resolveItemPickup decides what happens when a player steps onto an
// item: direct pickup when there is room, prioritization for virtual
// players, or an inventory-full prompt for humans. Requires the session
// lock; the item stays on the tile until a decision moves it.
func (as *ActionService) resolveItemPickup(session *GameSession, player *models.Player, tile *models.Tile) {
	item := *tile.Item
	if len(player.Inventory) < as.cfg.InventoryCap {
		as.updatePlayerAttributes(session, player, append(append([]models.Item{}, player.Inventory...), item))
		return
	}
	if player.IsVirtual {
		as.handleVirtualPlayerInventory(session, player, item)
		return
	}
	as.transport.ToPlayer(player.ID, messages.EventInventoryFull, messages.ItemMessage{
		PlayerID: player.ID,
		Item:     item,
	})
}

// handleVirtualPlayerInventory resolves a pickup for a virtual player
// whose inventory is full, keeping items matching its disposition and
// reporting the displaced one. Requires the session lock.
func (as *ActionService) handleVirtualPlayerInventory(session *GameSession, player *models.Player, item models.Item) {
	candidates := append(append([]models.Item{}, player.Inventory...), item)
	kept, discarded := as.PrioritizeItems(player, candidates)

	if discarded.Type == item.Type {
		// new item refused, it simply stays on the tile
		as.transport.ToRoom(session.Room.Code, messages.EventItemDiscarded, messages.ItemMessage{
			PlayerID: player.ID,
			Item:     item,
		})
		return
	}
	as.updatePlayerAttributes(session, player, kept)
	as.transport.ToRoom(session.Room.Code, messages.EventItemDiscarded, messages.ItemMessage{
		PlayerID: player.ID,
		Item:     discarded,
	})
}

// PrioritizeItems keeps the subset of candidates matching the player's
// disposition first (offensive items for aggressive players, defensive
// for the rest) and fills the remaining slots randomly. Returns the kept
// inventory and the single displaced item.
func (as *ActionService) PrioritizeItems(player *models.Player, candidates []models.Item) ([]models.Item, models.Item) {
	preferred := models.DefensiveItems
	if player.IsAggressive {
		preferred = models.OffensiveItems
	}
	isPreferred := make(map[models.ItemType]bool, len(preferred))
	for _, t := range preferred {
		isPreferred[t] = true
	}

	var kept, rest []models.Item
	for _, item := range candidates {
		if isPreferred[item.Type] && len(kept) < as.cfg.InventoryCap {
			kept = append(kept, item)
		} else {
			rest = append(rest, item)
		}
	}
	as.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	for len(kept) < as.cfg.InventoryCap {
		kept = append(kept, rest[0])
		rest = rest[1:]
	}
	return kept, rest[0]
}

// ToggleDoor flips a door tile between open and closed. The acting
// player must be adjacent to the door and must not have acted this turn;
// a door with a player standing in it cannot be closed. Toggling
// consumes the player's action for the turn.
func (as *ActionService) ToggleDoor(playerID string, session *GameSession, pos models.Position) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	player := session.Room.PlayerByID(playerID)
	if player == nil || player.HasActed {
		return
	}
	if !IsAdjacent(player.Position, pos) {
		return
	}
	tile := session.Room.Map.TileAt(pos)
	if tile == nil {
		return
	}

	switch tile.Type {
	case models.TileOpenDoor:
		if tile.Player != nil {
			return
		}
		tile.Type = models.TileClosedDoor
	case models.TileClosedDoor:
		tile.Type = models.TileOpenDoor
	default:
		return
	}

	player.HasActed = true
	log.Debug().Str("room", session.Room.Code).Str("player", player.ID).
		Int("x", pos.X).Int("y", pos.Y).Msg("door toggled")
	as.stats.Log(session.Room.Code, player.Name+" toggled a door", player.ID)
	as.stats.DoorToggled(session.Room.Code, pos)

	as.transport.ToRoom(session.Room.Code, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
	as.transport.ToPlayer(player.ID, messages.EventAvailableTiles, messages.TilesMessage{
		PlayerID: player.ID,
		Tiles:    ReachableTiles(session.Room.Map, player),
	})
	as.canStillActCheck(session, player)
}

// CheckForMystery resolves every mystery item on the map to a concrete
// random item type, drawing without replacement and excluding types
// already visible elsewhere, so mystery resolution never duplicates one.
func (as *ActionService) CheckForMystery(session *GameSession) {
	session.mu.Lock()
	defer session.mu.Unlock()

	m := session.Room.Map
	present := make(map[models.ItemType]bool)
	var mysteries []*models.Item
	for y := range m.Grid {
		for x := range m.Grid[y] {
			item := m.Grid[y][x].Item
			if item == nil {
				continue
			}
			if item.Type == models.ItemMystery {
				mysteries = append(mysteries, item)
			} else {
				present[item.Type] = true
			}
		}
	}
	if len(mysteries) == 0 {
		return
	}

	var pool []models.ItemType
	for _, t := range models.AllPickupItems {
		if !present[t] {
			pool = append(pool, t)
		}
	}
	as.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for i, mystery := range mysteries {
		if i < len(pool) {
			mystery.Type = pool[i]
		} else {
			// more mystery boxes than distinct item types left
			tile := m.TileAt(mystery.Position)
			if tile != nil {
				tile.Item = nil
			}
		}
	}
}

// PlayerHasNearbyAction reports whether the player could spend their
// action right now: an adjacent occupied tile to attack, or an adjacent
// door to toggle.
func (as *ActionService) PlayerHasNearbyAction(session *GameSession, player *models.Player) bool {
	for _, pos := range AdjacentTiles(session.Room.Map, player.Position) {
		tile := session.Room.Map.TileAt(pos)
		if tile.Player != nil {
			return true
		}
		if tile.Type == models.TileOpenDoor || tile.Type == models.TileClosedDoor {
			return true
		}
	}
	return false
}

// playerCanDoAction reports whether anything at all remains for the
// player this turn: an unspent action with a nearby target, or an
// adjacent move they can still afford. Requires the session lock.
func (as *ActionService) playerCanDoAction(session *GameSession, player *models.Player) bool {
	if !player.HasActed && as.PlayerHasNearbyAction(session, player) {
		return true
	}
	if player.Attributes.CurrentSpeed <= 0 {
		return false
	}
	for _, pos := range AdjacentTiles(session.Room.Map, player.Position) {
		if !IsValidTile(session.Room.Map, pos.X, pos.Y) {
			continue
		}
		if session.Room.Map.TileAt(pos).Type.Weight() <= player.Attributes.CurrentSpeed {
			return true
		}
	}
	return false
}

// canStillActCheck force-ends the turn of a player with no action and no
// move left. Requires the session lock.
func (as *ActionService) canStillActCheck(session *GameSession, player *models.Player) {
	if session.CurrentPlayer() != player {
		return
	}
	if !as.playerCanDoAction(session, player) {
		as.turns.endTurn(session)
	}
}
