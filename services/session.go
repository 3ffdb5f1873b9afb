package services

import (
	"sync"
	"time"

	"gridbound/server/models"
)

// GameSession is the live, authoritative state of one active room.
// There is at most one per room code and at most one Combat per session.
//
// All engine mutation of a session happens under mu; movement releases it
// between path steps so timers and intents interleave only at step
// boundaries. The logical flags (MovementUnlocked, TurnActive,
// Combat.Locked) additionally guard re-entrancy from stale or duplicate
// client intents.
type GameSession struct {
	mu sync.Mutex

	Room             *models.Room
	TurnIndex        int
	Timer            *GameTimer
	TurnActive       bool
	MovementUnlocked bool
	Combat           *models.Combat
	CombatTimer      *GameTimer
	DebugMode        bool
	StartTime        time.Time
	EndViewers       map[string]bool
}

// CurrentPlayer returns the player whose turn it is, or nil before the
// first turn or after the player left.
func (s *GameSession) CurrentPlayer() *models.Player {
	if s.TurnIndex < 0 || s.TurnIndex >= len(s.Room.Players) {
		return nil
	}
	return s.Room.Players[s.TurnIndex]
}

// NextTurnIndex returns the circular successor of the current turn index
func (s *GameSession) NextTurnIndex() int {
	if len(s.Room.Players) == 0 {
		return -1
	}
	return (s.TurnIndex + 1) % len(s.Room.Players)
}
