package persistence

import "gridbound/server/models"

// Storage defines the interface for durable match-statistics storage
type Storage interface {
	SaveMatchStats(stats *models.MatchStats) error
	LoadMatchStats(roomCode string) ([]*models.MatchStats, error)
	Close() error
}
