package models

// CombatMove is one of the two choices the acting combatant has
type CombatMove string

const (
	MoveAttack CombatMove = "attack"
	MoveRun    CombatMove = "run"
)

// Combatant wraps a player for the duration of one combat
type Combatant struct {
	Player      *Player
	RunAttempts int
	OnIce       bool
}

// AttackResult captures one resolved exchange
type AttackResult struct {
	AttackRoll   int  `json:"attack_roll"`
	DefenseRoll  int  `json:"defense_roll"`
	AttackTotal  int  `json:"attack_total"`
	DefenseTotal int  `json:"defense_total"`
	Success      bool `json:"success"`
}

// Combat is the transient two-party sub-protocol nested inside a turn.
// Attacker is always the combatant whose move it is; roles swap between
// exchanges. Locked guards against re-entrant moves while one resolves.
type Combat struct {
	Attacker     *Combatant
	Defender     *Combatant
	Locked       bool
	AttackResult *AttackResult
	Victor       *Player
	Loser        *Player
	Escaped      bool
}

// Opponent returns the combatant facing p, or nil if p is not in this combat
func (c *Combat) Opponent(p *Player) *Combatant {
	switch p {
	case c.Attacker.Player:
		return c.Defender
	case c.Defender.Player:
		return c.Attacker
	}
	return nil
}

// CombatantFor returns the combatant wrapper for p, or nil
func (c *Combat) CombatantFor(p *Player) *Combatant {
	switch p {
	case c.Attacker.Player:
		return c.Attacker
	case c.Defender.Player:
		return c.Defender
	}
	return nil
}
