package handlers

import (
	"sync"

	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// ClientManager tracks connected clients and the rooms they belong to,
// and implements the engine's Transport by fanning events out over the
// tracked connections. Virtual players have no connection and are
// skipped transparently.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*ClientHandler // player id -> handler
	rooms   map[string]*models.Room   // room code -> room
	members map[string]string         // player id -> room code
}

// NewClientManager creates an empty manager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*ClientHandler),
		rooms:   make(map[string]*models.Room),
		members: make(map[string]string),
	}
}

// Register binds a player id to its handler and room
func (cm *ClientManager) Register(playerID, roomCode string, handler *ClientHandler) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[playerID] = handler
	cm.members[playerID] = roomCode
}

// Unregister drops a player's connection tracking. The room itself is
// removed once no member remains.
func (cm *ClientManager) Unregister(playerID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	roomCode, ok := cm.members[playerID]
	delete(cm.clients, playerID)
	delete(cm.members, playerID)
	if !ok {
		return
	}
	for _, code := range cm.members {
		if code == roomCode {
			return
		}
	}
	delete(cm.rooms, roomCode)
}

// Room returns the room with the given code, or nil
func (cm *ClientManager) Room(code string) *models.Room {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.rooms[code]
}

// RoomOf returns the room a player belongs to, or nil
func (cm *ClientManager) RoomOf(playerID string) *models.Room {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if code, ok := cm.members[playerID]; ok {
		return cm.rooms[code]
	}
	return nil
}

// EnsureRoom returns the room with the given code, creating it when it
// does not exist yet. Reports whether the room was created by this call.
func (cm *ClientManager) EnsureRoom(code string, gameMap *models.GameMap, capacity int) (*models.Room, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if room, ok := cm.rooms[code]; ok {
		return room, false
	}
	room := models.NewRoom(code, gameMap, capacity)
	cm.rooms[code] = room
	return room, true
}

// ToRoom sends an event to every connected member of a room
func (cm *ClientManager) ToRoom(roomCode string, event messages.EventType, payload interface{}) {
	msg := messages.ServerMessage{Type: event, Payload: payload}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for playerID, code := range cm.members {
		if code != roomCode {
			continue
		}
		client, ok := cm.clients[playerID]
		if !ok {
			continue
		}
		if err := client.conn.SendMessage(msg); err != nil {
			log.Warn().Err(err).Str("player", playerID).Str("event", string(event)).Msg("room send failed")
		}
	}
}

// ToPlayer sends an event to one connected player
func (cm *ClientManager) ToPlayer(playerID string, event messages.EventType, payload interface{}) {
	cm.mu.RLock()
	client, ok := cm.clients[playerID]
	cm.mu.RUnlock()
	if !ok {
		// virtual players and departed connections land here
		return
	}
	msg := messages.ServerMessage{Type: event, Payload: payload}
	if err := client.conn.SendMessage(msg); err != nil {
		log.Warn().Err(err).Str("player", playerID).Str("event", string(event)).Msg("player send failed")
	}
}
