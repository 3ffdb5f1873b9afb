package services

import "gridbound/server/messages"

// Transport is the outbound half of the socket layer the engine runs on
// top of. The engine only ever pushes complete snapshots through it and
// never reads anything back.
type Transport interface {
	// ToRoom fans an event out to every connection in a room
	ToRoom(roomCode string, event messages.EventType, payload interface{})
	// ToPlayer addresses an event to a single connection
	ToPlayer(playerID string, event messages.EventType, payload interface{})
}
