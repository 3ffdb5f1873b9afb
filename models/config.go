package models

import "time"

// GameConfig gathers every gameplay constant the engines branch on.
// Tests inject shrunk timers and zero delays through this struct.
type GameConfig struct {
	TurnSeconds            int
	CombatTurnSeconds      int
	CombatTurnShortSeconds int

	SlipChance   float64
	EscapeChance float64

	RunAttempts        int
	RunAttemptsTrapped int

	IcePenalty   int
	AttackDamage int
	WinThreshold int
	InventoryCap int

	MoveStepDelay    time.Duration
	NextTurnDelay    time.Duration
	CombatEndDelay   time.Duration
	ThinkingDelayMin time.Duration
	ThinkingDelayMax time.Duration
}

// DefaultGameConfig returns the production constants
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TurnSeconds:            30,
		CombatTurnSeconds:      5,
		CombatTurnShortSeconds: 3,
		SlipChance:             0.1,
		EscapeChance:           0.4,
		RunAttempts:            2,
		RunAttemptsTrapped:     1,
		IcePenalty:             2,
		AttackDamage:           1,
		WinThreshold:           3,
		InventoryCap:           2,
		MoveStepDelay:          150 * time.Millisecond,
		NextTurnDelay:          3 * time.Second,
		CombatEndDelay:         time.Second,
		ThinkingDelayMin:       500 * time.Millisecond,
		ThinkingDelayMax:       1500 * time.Millisecond,
	}
}
