package models

// DicePreference records which combat role a player assigned their
// larger die to at character creation.
type DicePreference string

const (
	DiceAttack  DicePreference = "attack"
	DiceDefense DicePreference = "defense"
)

// Attributes holds a player's combat and movement stats. LifePoints and
// SpeedPoints are the bases; CurrentHP and CurrentSpeed are the per-combat
// and per-turn working values.
type Attributes struct {
	LifePoints    int            `json:"life_points"`
	SpeedPoints   int            `json:"speed_points"`
	OffensePoints int            `json:"offense_points"`
	DefensePoints int            `json:"defense_points"`
	CurrentHP     int            `json:"current_hp"`
	CurrentSpeed  int            `json:"current_speed"`
	DicePref      DicePreference `json:"dice_pref"`
	ActionsLeft   int            `json:"actions_left"`
}

// Player is one participant in a room, human or virtual. ID doubles as
// the connection id and as the key for turn order and inventories.
type Player struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Character    string     `json:"character"`
	IsHost       bool       `json:"is_host"`
	IsVirtual    bool       `json:"is_virtual"`
	IsAggressive bool       `json:"is_aggressive"`

	Position      Position   `json:"position"`
	StartPosition Position   `json:"start_position"`
	Attributes    Attributes `json:"attributes"`
	Inventory     []Item     `json:"inventory"`
	HasActed      bool       `json:"has_acted"`
	HasFlag       bool       `json:"has_flag"`
	Wins          int        `json:"wins"`
}

// HasItem reports whether the player carries an item of the given type
func (p *Player) HasItem(t ItemType) bool {
	for _, item := range p.Inventory {
		if item.Type == t {
			return true
		}
	}
	return false
}

// AttackDie returns the number of faces on the player's attack die
func (p *Player) AttackDie() int {
	if p.Attributes.DicePref == DiceAttack {
		return 6
	}
	return 4
}

// DefenseDie returns the number of faces on the player's defense die
func (p *Player) DefenseDie() int {
	if p.Attributes.DicePref == DiceDefense {
		return 6
	}
	return 4
}
