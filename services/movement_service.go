package services

import (
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// MovementService executes pathfinding-driven movement step by step,
// with per-step side effects: speed decrement, ice slips, item pickups
// and the flag-home win condition.
type MovementService struct {
	cfg       models.GameConfig
	rng       Rand
	transport Transport
	stats     *StatsService

	actions *ActionService
	turns   *TurnService
}

// MovePlayer walks the player along path, one tile per step, pacing the
// steps with a fixed delay so clients can animate. A locked movement
// flag or an empty path is a silent no-op. The session lock is released
// during the pacing delay, so timers and intents interleave exactly at
// step boundaries.
func (ms *MovementService) MovePlayer(playerID string, session *GameSession, path []models.Position) {
	if session == nil || len(path) == 0 {
		return
	}

	session.mu.Lock()
	player := session.Room.PlayerByID(playerID)
	if player == nil || !session.MovementUnlocked {
		session.mu.Unlock()
		return
	}
	session.MovementUnlocked = false

	for i, step := range path {
		tile := session.Room.Map.TileAt(step)
		if tile == nil {
			break
		}

		ms.stats.TileVisited(session.Room.Code, player.ID, step)
		ms.relocate(session, player, step)
		player.Attributes.CurrentSpeed -= tile.Type.Weight()

		if ms.slips(session, player, tile) {
			session.MovementUnlocked = true
			ms.emitStep(session, player)
			log.Debug().Str("room", session.Room.Code).Str("player", player.ID).Msg("player slipped on ice")
			ms.stats.Log(session.Room.Code, player.Name+" slipped on the ice", player.ID)
			ms.turns.endTurn(session)
			session.mu.Unlock()
			return
		}

		if player.HasFlag && player.Position == player.StartPosition {
			session.MovementUnlocked = true
			ms.emitStep(session, player)
			ms.turns.stopGame(session, player)
			session.mu.Unlock()
			return
		}

		ms.emitStep(session, player)

		if tile.Item != nil && tile.Item.Type != models.ItemStart {
			session.MovementUnlocked = true
			ms.actions.resolveItemPickup(session, player, tile)
			session.mu.Unlock()
			return
		}

		if player.Attributes.CurrentSpeed <= 0 {
			session.MovementUnlocked = true
			ms.actions.canStillActCheck(session, player)
			session.mu.Unlock()
			return
		}

		if i < len(path)-1 {
			session.mu.Unlock()
			time.Sleep(ms.cfg.MoveStepDelay)
			session.mu.Lock()
			// the turn may have ended or moved on while we slept; a
			// stale walk must not keep stepping into another turn
			if session.Room.PlayerByID(playerID) == nil || !session.Room.IsActive ||
				!session.TurnActive || session.CurrentPlayer() != player {
				session.MovementUnlocked = true
				session.mu.Unlock()
				return
			}
		}
	}

	session.MovementUnlocked = true
	if !player.IsVirtual {
		ms.actions.canStillActCheck(session, player)
	}
	session.mu.Unlock()
}

// slips rolls the ice-slip chance for the tile just entered
func (ms *MovementService) slips(session *GameSession, player *models.Player, tile *models.Tile) bool {
	if tile.Type != models.TileIce || session.DebugMode || player.HasItem(models.ItemBoots) {
		return false
	}
	return ms.rng.Float64() < ms.cfg.SlipChance
}

// relocate moves the player's grid token. Both sides of the tile/player
// back-reference change together; Player.Position stays the source of truth.
func (ms *MovementService) relocate(session *GameSession, player *models.Player, to models.Position) {
	if old := session.Room.Map.TileAt(player.Position); old != nil && old.Player == player {
		old.Player = nil
	}
	player.Position = to
	if tile := session.Room.Map.TileAt(to); tile != nil {
		tile.Player = player
	}
}

// emitStep pushes the post-step snapshots: speed and reachable tiles to
// the mover, position and map to the room.
func (ms *MovementService) emitStep(session *GameSession, player *models.Player) {
	roomCode := session.Room.Code
	ms.transport.ToPlayer(player.ID, messages.EventPlayerSpeed, messages.SpeedMessage{
		PlayerID: player.ID,
		Speed:    player.Attributes.CurrentSpeed,
	})
	ms.transport.ToRoom(roomCode, messages.EventPlayerMoved, messages.MoveMessage{
		PlayerID: player.ID,
		Position: player.Position,
	})
	ms.transport.ToRoom(roomCode, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
	ms.transport.ToPlayer(player.ID, messages.EventAvailableTiles, messages.TilesMessage{
		PlayerID: player.ID,
		Tiles:    ReachableTiles(session.Room.Map, player),
	})
}

// TeleportPlayer relocates a player instantly, bypassing path stepping.
// Only available in debug mode; invalid destinations are rejected
// silently. Win and item checks still apply.
func (ms *MovementService) TeleportPlayer(playerID string, session *GameSession, target models.Position) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	player := session.Room.PlayerByID(playerID)
	if player == nil || !session.DebugMode || !session.MovementUnlocked {
		return
	}
	if !IsValidTile(session.Room.Map, target.X, target.Y) {
		return
	}

	ms.stats.TileVisited(session.Room.Code, player.ID, target)
	ms.relocate(session, player, target)

	if player.HasFlag && player.Position == player.StartPosition {
		ms.emitStep(session, player)
		ms.turns.stopGame(session, player)
		return
	}

	ms.emitStep(session, player)

	tile := session.Room.Map.TileAt(target)
	if tile.Item != nil && tile.Item.Type != models.ItemStart {
		ms.actions.resolveItemPickup(session, player, tile)
	}
}

// LoadCharacters shuffles the map's start markers and assigns one per
// player as both start and current position. Unused markers are cleared.
func (ms *MovementService) LoadCharacters(session *GameSession) {
	session.mu.Lock()
	defer session.mu.Unlock()

	var starts []models.Position
	for y := range session.Room.Map.Grid {
		for x := range session.Room.Map.Grid[y] {
			item := session.Room.Map.Grid[y][x].Item
			if item != nil && item.Type == models.ItemStart {
				starts = append(starts, models.Position{X: x, Y: y})
			}
		}
	}
	ms.rng.Shuffle(len(starts), func(i, j int) {
		starts[i], starts[j] = starts[j], starts[i]
	})

	for i, player := range session.Room.Players {
		if i >= len(starts) {
			break
		}
		player.StartPosition = starts[i]
		player.Position = starts[i]
		session.Room.Map.TileAt(starts[i]).Player = player
	}
	for i := len(session.Room.Players); i < len(starts); i++ {
		session.Room.Map.TileAt(starts[i]).Item = nil
	}
}
