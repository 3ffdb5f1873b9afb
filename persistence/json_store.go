package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gridbound/server/models"
)

// JSONStore persists match statistics in a local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of the JSON database
type JSONData struct {
	Matches map[string][]*models.MatchStats `json:"matches"`
}

// NewJSONStore creates a new JSON storage manager
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Matches: make(map[string][]*models.MatchStats),
		},
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %v", err)
		}
	} else {
		// Create file if it doesn't exist
		if err := store.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %v", err)
		}
	}

	return store, nil
}

// loadFromFile loads data from the JSON file
func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(file, js.data)
}

// saveToFile saves data to the JSON file
func (js *JSONStore) saveToFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(js.filePath, data, 0644)
}

// SaveMatchStats appends a finalized match aggregate to the store
func (js *JSONStore) SaveMatchStats(stats *models.MatchStats) error {
	js.mutex.Lock()
	js.data.Matches[stats.RoomCode] = append(js.data.Matches[stats.RoomCode], stats)
	js.mutex.Unlock()

	return js.saveToFile()
}

// LoadMatchStats returns every recorded match for a room code
func (js *JSONStore) LoadMatchStats(roomCode string) ([]*models.MatchStats, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	matches, exists := js.data.Matches[roomCode]
	if !exists {
		return nil, fmt.Errorf("no matches recorded for room %s", roomCode)
	}

	return matches, nil
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
