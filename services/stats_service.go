package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gridbound/server/models"
	"gridbound/server/persistence"
)

// StatsService aggregates per-room, per-player telemetry. The engines
// only ever write into it; nothing they do depends on its answers.
// Finalize snapshots the aggregate and hands it to the stats store.
type StatsService struct {
	mu    sync.Mutex
	store persistence.Storage
	rooms map[string]*roomTracker
}

type roomTracker struct {
	start        time.Time
	players      map[string]*models.PlayerStats
	visited      map[string]map[models.Position]bool
	allVisited   map[models.Position]bool
	doorsToggled map[models.Position]bool
	log          []models.LogEntry
	totalTiles   int
	totalDoors   int
}

// NewStatsService creates a stats sink backed by the given store.
// A nil store is allowed; finalized stats are then only logged.
func NewStatsService(store persistence.Storage) *StatsService {
	return &StatsService{store: store, rooms: make(map[string]*roomTracker)}
}

// InitRoom starts tracking a room. Counting the map's doors and valid
// tiles up front lets Finalize report usage ratios.
func (ss *StatsService) InitRoom(room *models.Room) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	tracker := &roomTracker{
		start:        time.Now(),
		players:      make(map[string]*models.PlayerStats),
		visited:      make(map[string]map[models.Position]bool),
		allVisited:   make(map[models.Position]bool),
		doorsToggled: make(map[models.Position]bool),
		totalTiles:   CountValidTiles(room.Map),
		totalDoors:   CountDoors(room.Map),
	}
	for _, p := range room.Players {
		tracker.players[p.ID] = &models.PlayerStats{PlayerID: p.ID, Name: p.Name}
		tracker.visited[p.ID] = make(map[models.Position]bool)
	}
	ss.rooms[room.Code] = tracker
}

// Log appends one telemetry line for the room
func (ss *StatsService) Log(roomCode, message string, playerIDs ...string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	tracker, ok := ss.rooms[roomCode]
	if !ok {
		return
	}
	tracker.log = append(tracker.log, models.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Message:   message,
		PlayerIDs: playerIDs,
	})
}

// TileVisited records that a player stepped onto pos
func (ss *StatsService) TileVisited(roomCode, playerID string, pos models.Position) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	tracker, ok := ss.rooms[roomCode]
	if !ok {
		return
	}
	tracker.allVisited[pos] = true
	if set, ok := tracker.visited[playerID]; ok {
		set[pos] = true
	}
}

// DoorToggled records a door manipulation at pos
func (ss *StatsService) DoorToggled(roomCode string, pos models.Position) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if tracker, ok := ss.rooms[roomCode]; ok {
		tracker.doorsToggled[pos] = true
	}
}

// CombatStarted increments the combat counter of both participants
func (ss *StatsService) CombatStarted(roomCode string, playerIDs ...string) {
	ss.bump(roomCode, playerIDs, func(s *models.PlayerStats) { s.Combats++ })
}

// CombatWon increments a player's victory counter
func (ss *StatsService) CombatWon(roomCode, playerID string) {
	ss.bump(roomCode, []string{playerID}, func(s *models.PlayerStats) { s.CombatsWon++ })
}

// CombatLost increments a player's defeat counter
func (ss *StatsService) CombatLost(roomCode, playerID string) {
	ss.bump(roomCode, []string{playerID}, func(s *models.PlayerStats) { s.CombatsLost++ })
}

// CombatEscaped increments a player's escape counter
func (ss *StatsService) CombatEscaped(roomCode, playerID string) {
	ss.bump(roomCode, []string{playerID}, func(s *models.PlayerStats) { s.Escapes++ })
}

// ItemCollected increments a player's pickup counter
func (ss *StatsService) ItemCollected(roomCode, playerID string) {
	ss.bump(roomCode, []string{playerID}, func(s *models.PlayerStats) { s.ItemsCollected++ })
}

func (ss *StatsService) bump(roomCode string, playerIDs []string, f func(*models.PlayerStats)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	tracker, ok := ss.rooms[roomCode]
	if !ok {
		return
	}
	for _, id := range playerIDs {
		if stats, ok := tracker.players[id]; ok {
			f(stats)
		}
	}
}

// Finalize computes the room's aggregate, persists it and stops tracking.
// Calling it again for the same room returns nil.
func (ss *StatsService) Finalize(roomCode, winner string) *models.MatchStats {
	ss.mu.Lock()
	tracker, ok := ss.rooms[roomCode]
	if !ok {
		ss.mu.Unlock()
		return nil
	}
	delete(ss.rooms, roomCode)
	ss.mu.Unlock()

	stats := &models.MatchStats{
		RoomCode:     roomCode,
		StartedAt:    tracker.start,
		Duration:     time.Since(tracker.start),
		Winner:       winner,
		DoorsToggled: len(tracker.doorsToggled),
		TilesVisited: len(tracker.allVisited),
		Log:          tracker.log,
	}
	if tracker.totalDoors > 0 {
		stats.DoorRatio = float64(len(tracker.doorsToggled)) / float64(tracker.totalDoors)
	}
	if tracker.totalTiles > 0 {
		stats.TileRatio = float64(len(tracker.allVisited)) / float64(tracker.totalTiles)
	}
	for id, ps := range tracker.players {
		ps.TilesVisited = len(tracker.visited[id])
		if tracker.totalTiles > 0 {
			ps.TileRatio = float64(ps.TilesVisited) / float64(tracker.totalTiles)
		}
		stats.Players = append(stats.Players, *ps)
	}

	if ss.store != nil {
		if err := ss.store.SaveMatchStats(stats); err != nil {
			log.Error().Err(err).Str("room", roomCode).Msg("failed to persist match stats")
		}
	}
	return stats
}
