package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gridbound/server/models"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore persists match statistics in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage manager
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	store := &PostgresStore{db: db}

	// Initialize the database schema
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	return store, nil
}

// initSchema initializes the database schema
func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		room_code TEXT NOT NULL,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		duration_ms BIGINT NOT NULL,
		winner TEXT,
		doors_toggled INTEGER NOT NULL,
		door_ratio DOUBLE PRECISION NOT NULL,
		tiles_visited INTEGER NOT NULL,
		tile_ratio DOUBLE PRECISION NOT NULL,
		players JSONB NOT NULL,
		log JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS matches_room_code_idx ON matches (room_code);
	`

	_, err := ps.db.Exec(schema)
	return err
}

// SaveMatchStats appends a finalized match aggregate to the database
func (ps *PostgresStore) SaveMatchStats(stats *models.MatchStats) error {
	playersJSON, err := json.Marshal(stats.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal player stats: %v", err)
	}
	logJSON, err := json.Marshal(stats.Log)
	if err != nil {
		return fmt.Errorf("failed to marshal match log: %v", err)
	}

	query := `
	INSERT INTO matches (room_code, started_at, duration_ms, winner, doors_toggled, door_ratio, tiles_visited, tile_ratio, players, log)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = ps.db.Exec(query,
		stats.RoomCode, stats.StartedAt, stats.Duration.Milliseconds(),
		stats.Winner, stats.DoorsToggled, stats.DoorRatio,
		stats.TilesVisited, stats.TileRatio,
		string(playersJSON), string(logJSON))

	if err != nil {
		return fmt.Errorf("failed to save match stats: %v", err)
	}

	return nil
}

// LoadMatchStats returns every recorded match for a room code
func (ps *PostgresStore) LoadMatchStats(roomCode string) ([]*models.MatchStats, error) {
	query := `SELECT room_code, started_at, duration_ms, winner, doors_toggled, door_ratio, tiles_visited, tile_ratio, players, log FROM matches WHERE room_code = $1 ORDER BY started_at`

	rows, err := ps.db.Query(query, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load match stats: %v", err)
	}
	defer rows.Close()

	var matches []*models.MatchStats
	for rows.Next() {
		var stats models.MatchStats
		var durationMs int64
		var playersJSON, logJSON string

		err := rows.Scan(
			&stats.RoomCode, &stats.StartedAt, &durationMs, &stats.Winner,
			&stats.DoorsToggled, &stats.DoorRatio,
			&stats.TilesVisited, &stats.TileRatio,
			&playersJSON, &logJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match stats: %v", err)
		}

		stats.Duration = millisecondsToDuration(durationMs)
		if err := json.Unmarshal([]byte(playersJSON), &stats.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player stats: %v", err)
		}
		if err := json.Unmarshal([]byte(logJSON), &stats.Log); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match log: %v", err)
		}

		matches = append(matches, &stats)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no matches recorded for room %s", roomCode)
	}

	return matches, nil
}

func millisecondsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	log.Info().Msg("closing database connection")
	return ps.db.Close()
}
