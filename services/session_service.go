package services

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// SessionService is the registry of live game sessions, keyed by room
// code. It owns session creation and teardown; everything else operates
// on sessions it hands out.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession

	cfg       models.GameConfig
	rng       Rand
	transport Transport
	stats     *StatsService
	movement  *MovementService
	actions   *ActionService
	turns     *TurnService
}

// InitialiseGame creates the authoritative session for a room, seeds the
// turn order by descending speed (ties broken randomly), places the
// players on their start tiles, resolves mystery items and initialises
// stats tracking. Idempotent: a second call for the same room code
// returns the existing session untouched.
func (svc *SessionService) InitialiseGame(room *models.Room) *GameSession {
	svc.mu.Lock()
	if existing, ok := svc.sessions[room.Code]; ok {
		svc.mu.Unlock()
		return existing
	}

	session := &GameSession{
		Room:             room,
		TurnIndex:        -1,
		Timer:            NewGameTimer(svc.cfg.TurnSeconds, time.Second, false, 0),
		MovementUnlocked: true,
		StartTime:        time.Now(),
		EndViewers:       make(map[string]bool),
	}
	room.IsActive = true
	svc.sessions[room.Code] = session
	svc.mu.Unlock()

	svc.orderPlayersBySpeed(room)
	svc.movement.LoadCharacters(session)
	svc.actions.CheckForMystery(session)
	svc.stats.InitRoom(room)

	order := make([]messages.TurnMessage, 0, len(room.Players))
	for _, p := range room.Players {
		order = append(order, messages.TurnMessage{PlayerID: p.ID, PlayerName: p.Name})
	}
	svc.transport.ToRoom(room.Code, messages.EventPlayerOrder, order)
	svc.transport.ToRoom(room.Code, messages.EventMapUpdated, messages.MapMessage{Map: room.Map})
	log.Info().Str("room", room.Code).Int("players", len(room.Players)).Msg("game session initialised")

	return session
}

// orderPlayersBySpeed sorts descending by speed; a pre-shuffle plus a
// stable sort gives equal-speed players a uniformly random relative order.
func (svc *SessionService) orderPlayersBySpeed(room *models.Room) {
	players := room.Players
	svc.rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	// insertion sort keeps the shuffled order among equals
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].Attributes.SpeedPoints > players[j-1].Attributes.SpeedPoints; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}

// Session returns the live session for a room code, or nil
func (svc *SessionService) Session(roomCode string) *GameSession {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.sessions[roomCode]
}

// EndSession marks the room inactive and removes the session from the
// registry. Safe to call multiple times.
func (svc *SessionService) EndSession(session *GameSession) {
	if session == nil {
		return
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	session.Room.IsActive = false
	delete(svc.sessions, session.Room.Code)
}

// CurrentPlayerID returns the connection id of the player whose turn it
// is, or the empty string when the room has no session or no turn yet.
func (svc *SessionService) CurrentPlayerID(roomCode string) string {
	session := svc.Session(roomCode)
	if session == nil {
		return ""
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if current := session.CurrentPlayer(); current != nil {
		return current.ID
	}
	return ""
}

// ToggleDebug flips the session's debug mode. Only the host may toggle
// it; anyone else is a silent no-op. Returns the resulting state.
func (svc *SessionService) ToggleDebug(session *GameSession, playerID string) bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	player := session.Room.PlayerByID(playerID)
	if player == nil || !player.IsHost {
		return session.DebugMode
	}
	session.DebugMode = !session.DebugMode
	log.Info().Str("room", session.Room.Code).Bool("debug", session.DebugMode).Msg("debug mode toggled")
	return session.DebugMode
}

// AddRejectedItem places an item a player discarded back onto their
// current tile. Discarding the flag clears the holder status and
// notifies the room.
func (svc *SessionService) AddRejectedItem(session *GameSession, player *models.Player, item models.Item) {
	session.mu.Lock()
	defer session.mu.Unlock()
	svc.addRejectedItem(session, player, item)
}

// addRejectedItem requires the session lock
func (svc *SessionService) addRejectedItem(session *GameSession, player *models.Player, item models.Item) {
	tile := session.Room.Map.TileAt(player.Position)
	if tile == nil {
		return
	}
	item.Position = player.Position
	tile.Item = &item

	if item.Type == models.ItemFlag {
		player.HasFlag = false
		svc.transport.ToRoom(session.Room.Code, messages.EventFlagDropped, messages.FlagMessage{
			PlayerID:   player.ID,
			PlayerName: player.Name,
		})
	}
	svc.transport.ToRoom(session.Room.Code, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
}
