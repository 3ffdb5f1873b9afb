package models

import "time"

// LogEntry is one line of per-room telemetry
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	PlayerIDs []string  `json:"player_ids"`
}

// PlayerStats aggregates one player's telemetry over a match
type PlayerStats struct {
	PlayerID       string  `json:"player_id"`
	Name           string  `json:"name"`
	Combats        int     `json:"combats"`
	CombatsWon     int     `json:"combats_won"`
	CombatsLost    int     `json:"combats_lost"`
	Escapes        int     `json:"escapes"`
	ItemsCollected int     `json:"items_collected"`
	TilesVisited   int     `json:"tiles_visited"`
	TileRatio      float64 `json:"tile_ratio"`
}

// MatchStats is the finalized per-room aggregate handed to the stats store
type MatchStats struct {
	RoomCode       string        `json:"room_code"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Winner         string        `json:"winner,omitempty"`
	Players        []PlayerStats `json:"players"`
	DoorsToggled   int           `json:"doors_toggled"`
	DoorRatio      float64       `json:"door_ratio"`
	TilesVisited   int           `json:"tiles_visited"`
	TileRatio      float64       `json:"tile_ratio"`
	Log            []LogEntry    `json:"log"`
}
