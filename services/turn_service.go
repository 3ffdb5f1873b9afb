package services

import (
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// VirtualTurn is the hand-off the turn engine publishes when a virtual
// player's turn starts. The virtual player behavior consumes it from a
// channel, which keeps the AI from being a direct dependency of the
// turn engine.
type VirtualTurn struct {
	Session *GameSession
	Player  *models.Player
}

// TurnService drives the per-room turn state machine: start, pause,
// continue and end of turns, the turn countdown, disconnect handling
// and game-over detection.
type TurnService struct {
	cfg       models.GameConfig
	transport Transport
	stats     *StatsService

	actions  *ActionService
	sessions *SessionService
	combat   *CombatService

	virtualTurns chan VirtualTurn
}

// VirtualTurns exposes the hand-off channel for the AI consumer
func (ts *TurnService) VirtualTurns() <-chan VirtualTurn {
	return ts.virtualTurns
}

// StartNextTurn advances the turn to the next player. A no-op when the
// room is inactive or a turn countdown is already running.
func (ts *TurnService) StartNextTurn(session *GameSession) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ts.startNextTurn(session)
}

// startNextTurn requires the session lock
func (ts *TurnService) startNextTurn(session *GameSession) {
	if !session.Room.IsActive || len(session.Room.Players) == 0 {
		return
	}
	if session.Timer != nil && session.Timer.Running() {
		return
	}

	if prev := session.CurrentPlayer(); prev != nil {
		prev.HasActed = false
	}
	session.TurnIndex = session.NextTurnIndex()
	current := session.CurrentPlayer()
	if current == nil {
		return
	}
	current.Attributes.CurrentSpeed = current.Attributes.SpeedPoints
	session.TurnActive = true

	log.Debug().Str("room", session.Room.Code).Str("player", current.ID).Msg("turn started")
	ts.stats.Log(session.Room.Code, "Turn of "+current.Name, current.ID)
	ts.transport.ToRoom(session.Room.Code, messages.EventTurnStarted, messages.TurnMessage{
		PlayerID:   current.ID,
		PlayerName: current.Name,
	})

	if current.IsVirtual {
		// async hand-off to the AI; no countdown for virtual players
		select {
		case ts.virtualTurns <- VirtualTurn{Session: session, Player: current}:
		default:
			log.Warn().Str("room", session.Room.Code).Msg("virtual turn channel full, ending turn")
			ts.endTurn(session)
		}
		return
	}

	ts.transport.ToPlayer(current.ID, messages.EventAvailableTiles, messages.TilesMessage{
		PlayerID: current.ID,
		Tiles:    ReachableTiles(session.Room.Map, current),
	})
	ts.armTurnTimer(session, ts.cfg.TurnSeconds)
}

// armTurnTimer requires the session lock
func (ts *TurnService) armTurnTimer(session *GameSession, seconds int) {
	timer := NewGameTimer(seconds, time.Second, false, 0)
	session.Timer = timer
	timer.Start(
		func(count int) {
			ts.transport.ToRoom(session.Room.Code, messages.EventClockTick, messages.ClockMessage{Seconds: count})
		},
		func() {
			ts.EndTurn(session)
		},
	)
}

// ContinueTurn resumes the countdown after a paused combat, re-arming
// it with the remaining count. With no time left, no map or no valid
// turn holder, the turn ends instead.
func (ts *TurnService) ContinueTurn(session *GameSession) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ts.continueTurn(session)
}

// continueTurn requires the session lock
func (ts *TurnService) continueTurn(session *GameSession) {
	remaining := 0
	if session.Timer != nil {
		remaining = session.Timer.Count()
	}
	if remaining <= 0 || session.Room.Map == nil || session.CurrentPlayer() == nil {
		ts.endTurn(session)
		return
	}
	current := session.CurrentPlayer()
	if current.IsVirtual {
		// a virtual player resumes without a countdown, same as its turn start
		select {
		case ts.virtualTurns <- VirtualTurn{Session: session, Player: current}:
		default:
			ts.endTurn(session)
		}
		return
	}
	ts.transport.ToRoom(session.Room.Code, messages.EventContinueTurn, messages.TurnMessage{
		PlayerID:   current.ID,
		PlayerName: current.Name,
	})
	ts.armTurnTimer(session, remaining)
}

// EndTurn closes the current turn and schedules the next one. A no-op
// while a combat is active or when no turn is running.
func (ts *TurnService) EndTurn(session *GameSession) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ts.endTurn(session)
}

// endTurn requires the session lock
func (ts *TurnService) endTurn(session *GameSession) {
	if session.Combat != nil || !session.TurnActive {
		return
	}
	session.TurnActive = false
	if session.Timer != nil {
		session.Timer.Stop()
	}
	ts.transport.ToRoom(session.Room.Code, messages.EventClockTick, messages.ClockMessage{Seconds: 0})
	ts.transport.ToRoom(session.Room.Code, messages.EventTurnEnded, messages.TurnMessage{})

	if idx := session.NextTurnIndex(); idx >= 0 {
		next := session.Room.Players[idx]
		ts.transport.ToRoom(session.Room.Code, messages.EventNextPlayer, messages.TurnMessage{
			PlayerID:   next.ID,
			PlayerName: next.Name,
		})
	}
	time.AfterFunc(ts.cfg.NextTurnDelay, func() {
		ts.StartNextTurn(session)
	})
}

// PauseTurn stops the countdown without ending the turn, used when a
// combat takes over the clock.
func (ts *TurnService) PauseTurn(session *GameSession) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ts.pauseTurn(session)
}

// pauseTurn requires the session lock
func (ts *TurnService) pauseTurn(session *GameSession) {
	if session.Timer != nil {
		session.Timer.Stop()
	}
}

// StopGame finalizes the room. With a winner the room sees the game-over
// screen and the session lives until the last viewer leaves; without one
// the game is aborted and the session destroyed immediately. Statistics
// are finalized either way.
func (ts *TurnService) StopGame(session *GameSession, winner *models.Player) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	ts.stopGame(session, winner)
}

// stopGame requires the session lock
func (ts *TurnService) stopGame(session *GameSession, winner *models.Player) {
	winnerName := ""
	winnerID := ""
	if winner != nil {
		winnerName = winner.Name
		winnerID = winner.ID
	}
	ts.stats.Finalize(session.Room.Code, winnerName)
	if session.Timer != nil {
		session.Timer.Stop()
	}
	if session.CombatTimer != nil {
		session.CombatTimer.Stop()
	}
	session.TurnActive = false
	session.Room.IsActive = false

	if winner != nil {
		log.Info().Str("room", session.Room.Code).Str("winner", winner.ID).Msg("game over")
		for _, p := range session.Room.Players {
			session.EndViewers[p.ID] = true
		}
		ts.transport.ToRoom(session.Room.Code, messages.EventGameOver, messages.GameOverMessage{
			WinnerID:   winnerID,
			WinnerName: winnerName,
		})
		return
	}
	log.Info().Str("room", session.Room.Code).Msg("game aborted")
	ts.transport.ToRoom(session.Room.Code, messages.EventGameAborted, messages.GameOverMessage{})
	ts.sessions.EndSession(session)
}

// LeaveWinnerView marks a player done with the end-game screen; the
// session is destroyed once the last viewer leaves.
func (ts *TurnService) LeaveWinnerView(session *GameSession, playerID string) {
	if session == nil {
		return
	}
	session.mu.Lock()
	delete(session.EndViewers, playerID)
	empty := len(session.EndViewers) == 0
	session.mu.Unlock()
	if empty {
		ts.sessions.EndSession(session)
	}
}

// HandlePlayerExit unwinds everything a departing player holds: combat
// participation, the turn itself, map occupancy and the host's debug
// mode. The game stops when too few real players remain to carry on.
func (ts *TurnService) HandlePlayerExit(session *GameSession, playerID string) {
	if session == nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	player := session.Room.PlayerByID(playerID)
	if player == nil {
		return
	}
	log.Info().Str("room", session.Room.Code).Str("player", playerID).Msg("player left the game")
	ts.stats.Log(session.Room.Code, player.Name+" left the game", player.ID)

	if session.Combat != nil && session.Combat.CombatantFor(player) != nil {
		ts.combat.handleCombatQuit(session, player)
	}

	exitIndex := -1
	for i, p := range session.Room.Players {
		if p == player {
			exitIndex = i
			break
		}
	}
	holdsTurn := exitIndex == session.TurnIndex && session.TurnIndex >= 0

	if tile := session.Room.Map.TileAt(player.Position); tile != nil && tile.Player == player {
		tile.Player = nil
	}
	session.Room.RemovePlayer(playerID)

	switch {
	case holdsTurn:
		// the successor slides into the departed player's slot, so the
		// index rolls back and the end-of-turn announcement lands on a
		// player who is still in the room
		session.TurnIndex = exitIndex - 1
		ts.endTurn(session)
	case exitIndex >= 0 && exitIndex < session.TurnIndex:
		session.TurnIndex--
	}

	if player.IsHost {
		session.DebugMode = false
	}

	real, virtual := 0, 0
	for _, p := range session.Room.Players {
		if p.IsVirtual {
			virtual++
		} else {
			real++
		}
	}
	if session.Room.IsActive && ((virtual == 0 && real <= 2) || (virtual > 0 && real <= 1)) {
		ts.stopGame(session, nil)
		return
	}

	ts.transport.ToRoom(session.Room.Code, messages.EventMapUpdated, messages.MapMessage{Map: session.Room.Map})
}
