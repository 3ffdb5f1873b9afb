package services

import (
	"sync"
	"time"

	"gridbound/server/messages"
	"gridbound/server/models"
)

// fakeTransport records everything the engine emits
type fakeTransport struct {
	mu     sync.Mutex
	events []emittedEvent
}

type emittedEvent struct {
	Room    string
	Player  string
	Event   messages.EventType
	Payload interface{}
}

func (f *fakeTransport) ToRoom(roomCode string, event messages.EventType, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{Room: roomCode, Event: event, Payload: payload})
}

func (f *fakeTransport) ToPlayer(playerID string, event messages.EventType, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{Player: playerID, Event: event, Payload: payload})
}

func (f *fakeTransport) count(event messages.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (f *fakeTransport) last(event messages.EventType) (emittedEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Event == event {
			return f.events[i], true
		}
	}
	return emittedEvent{}, false
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// scriptRand plays back scripted draws and falls through to fixed
// defaults once the script runs out. The default Float64 of 1.0 never
// triggers a chance roll; the default Intn of 0 picks minimal rolls.
type scriptRand struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

func (r *scriptRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) > 0 {
		v := r.ints[0]
		r.ints = r.ints[1:]
		return v % n
	}
	return 0
}

func (r *scriptRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) > 0 {
		v := r.floats[0]
		r.floats = r.floats[1:]
		return v
	}
	return 1.0
}

func (r *scriptRand) Shuffle(n int, swap func(i, j int)) {}

// testConfig shrinks the pacing delays so tests run instantly, and
// pushes the scheduling delays out far enough that delayed callbacks
// never fire mid-test.
func testConfig() models.GameConfig {
	cfg := models.DefaultGameConfig()
	cfg.MoveStepDelay = 0
	cfg.NextTurnDelay = time.Minute
	cfg.CombatEndDelay = time.Minute
	cfg.ThinkingDelayMin = 0
	cfg.ThinkingDelayMax = 0
	return cfg
}

func newTestEngine(rng Rand) (*Engine, *fakeTransport) {
	transport := &fakeTransport{}
	return NewEngine(testConfig(), rng, transport, nil), transport
}

// grassMap builds an all-grass square map
func grassMap(size int) *models.GameMap {
	return models.NewGameMap("test", size, models.ModeCaptureTheFlag)
}

func testPlayer(id string, speed int) *models.Player {
	return &models.Player{
		ID:   id,
		Name: id,
		Attributes: models.Attributes{
			LifePoints:    4,
			SpeedPoints:   speed,
			OffensePoints: 4,
			DefensePoints: 4,
			CurrentHP:     4,
			CurrentSpeed:  speed,
			DicePref:      models.DiceAttack,
		},
	}
}

// placePlayer drops a player onto the map at pos and records occupancy
func placePlayer(m *models.GameMap, p *models.Player, pos models.Position) {
	p.Position = pos
	p.StartPosition = pos
	m.TileAt(pos).Player = p
}

// testSession builds a live session around the given room without going
// through the registry, for tests that drive one engine in isolation.
func testSession(room *models.Room) *GameSession {
	room.IsActive = true
	return &GameSession{
		Room:             room,
		TurnIndex:        0,
		MovementUnlocked: true,
		TurnActive:       true,
		StartTime:        time.Now(),
		EndViewers:       make(map[string]bool),
	}
}

func testRoom(m *models.GameMap, players ...*models.Player) *models.Room {
	room := models.NewRoom("0000", m, 4)
	room.Players = players
	return room
}
