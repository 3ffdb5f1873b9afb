package services

import (
	"gridbound/server/models"
	"gridbound/server/persistence"
)

// Engine bundles the per-concern services and wires their cross-links.
// The services live in one package and reference each other directly;
// the only indirection is the virtual-turn channel between the turn
// engine and the virtual player behavior, which breaks that cycle.
type Engine struct {
	Config   models.GameConfig
	Sessions *SessionService
	Movement *MovementService
	Combat   *CombatService
	Actions  *ActionService
	Turns    *TurnService
	Virtual  *VirtualPlayerService
	Stats    *StatsService
}

// NewEngine builds a fully wired engine. The virtual player loop is not
// running yet; call Engine.Virtual.Run in a goroutine to start it.
func NewEngine(cfg models.GameConfig, rng Rand, transport Transport, store persistence.Storage) *Engine {
	stats := NewStatsService(store)

	sessions := &SessionService{
		sessions:  make(map[string]*GameSession),
		cfg:       cfg,
		rng:       rng,
		transport: transport,
		stats:     stats,
	}
	movement := &MovementService{cfg: cfg, rng: rng, transport: transport, stats: stats}
	actions := &ActionService{cfg: cfg, rng: rng, transport: transport, stats: stats}
	combat := &CombatService{cfg: cfg, rng: rng, transport: transport, stats: stats}
	turns := &TurnService{
		cfg:          cfg,
		transport:    transport,
		stats:        stats,
		virtualTurns: make(chan VirtualTurn, 16),
	}
	virtual := &VirtualPlayerService{cfg: cfg, rng: rng}

	sessions.movement = movement
	sessions.actions = actions
	sessions.turns = turns
	movement.actions = actions
	movement.turns = turns
	actions.turns = turns
	actions.sessions = sessions
	combat.actions = actions
	combat.turns = turns
	combat.sessions = sessions
	combat.movement = movement
	turns.actions = actions
	turns.sessions = sessions
	turns.combat = combat
	virtual.movement = movement
	virtual.combat = combat
	virtual.actions = actions
	virtual.turns = turns

	return &Engine{
		Config:   cfg,
		Sessions: sessions,
		Movement: movement,
		Combat:   combat,
		Actions:  actions,
		Turns:    turns,
		Virtual:  virtual,
		Stats:    stats,
	}
}
