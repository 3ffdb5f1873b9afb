package messages

import (
	"encoding/json"

	"gridbound/server/models"
)

// EventType names a logical event emitted by the engine. The transport
// layer fans these out; every payload is a complete snapshot of the
// affected entity, never a diff.
type EventType string

const (
	// Turn lifecycle
	EventPlayerOrder  EventType = "player_order"
	EventTurnStarted  EventType = "turn_started"
	EventTurnEnded    EventType = "turn_ended"
	EventNextPlayer   EventType = "next_player"
	EventClockTick    EventType = "clock_tick"
	EventContinueTurn EventType = "continue_turn"
	EventGameOver     EventType = "game_over"
	EventGameAborted  EventType = "game_aborted"

	// Map and state sync
	EventMapUpdated     EventType = "map_updated"
	EventAvailableTiles EventType = "available_tiles"
	EventPlayerMoved    EventType = "player_moved"
	EventPlayerSpeed    EventType = "player_speed"
	EventAttributes     EventType = "player_attributes"
	EventFlagTaken      EventType = "flag_taken"
	EventFlagDropped    EventType = "flag_dropped"
	EventInventoryFull  EventType = "inventory_full"
	EventItemDiscarded  EventType = "item_discarded"

	// Combat lifecycle
	EventCombatStarted EventType = "combat_started"
	EventCombatTurn    EventType = "combat_turn"
	EventAttackResult  EventType = "attack_result"
	EventRunFailed     EventType = "run_failed"
	EventCombatResult  EventType = "combat_result"
	EventCombatEnded   EventType = "combat_ended"
	EventCombatAborted EventType = "combat_aborted"

	// Connection lifecycle
	EventJoined EventType = "joined"
	EventError  EventType = "error"
)

// TurnMessage announces whose turn started or will start next
type TurnMessage struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// ClockMessage carries the remaining seconds of the running countdown
type ClockMessage struct {
	Seconds int `json:"seconds"`
}

// GameOverMessage announces the end of a game, with the winner when one exists
type GameOverMessage struct {
	WinnerID   string `json:"winner_id,omitempty"`
	WinnerName string `json:"winner_name,omitempty"`
}

// MapMessage is a full snapshot of the room's grid
type MapMessage struct {
	Map *models.GameMap `json:"map"`
}

// TilesMessage lists the coordinates a player can currently reach
type TilesMessage struct {
	PlayerID string            `json:"player_id"`
	Tiles    []models.Position `json:"tiles"`
}

// MoveMessage is a snapshot of a player's position after a step
type MoveMessage struct {
	PlayerID string          `json:"player_id"`
	Position models.Position `json:"position"`
}

// SpeedMessage is a snapshot of a player's remaining speed
type SpeedMessage struct {
	PlayerID string `json:"player_id"`
	Speed    int    `json:"speed"`
}

// AttributesMessage is a full snapshot of a player's attributes and inventory
type AttributesMessage struct {
	PlayerID   string            `json:"player_id"`
	Attributes models.Attributes `json:"attributes"`
	Inventory  []models.Item     `json:"inventory"`
}

// FlagMessage announces a flag pickup or drop
type FlagMessage struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// ItemMessage announces an item offered to or discarded by a player
type ItemMessage struct {
	PlayerID string      `json:"player_id"`
	Item     models.Item `json:"item"`
}

// CombatMessage announces a combat between two players
type CombatMessage struct {
	AttackerID string `json:"attacker_id"`
	DefenderID string `json:"defender_id"`
}

// AttackResultMessage is the snapshot of one resolved exchange
type AttackResultMessage struct {
	AttackerID string               `json:"attacker_id"`
	DefenderID string               `json:"defender_id"`
	Result     models.AttackResult  `json:"result"`
	DefenderHP int                  `json:"defender_hp"`
}

// CombatResultMessage announces how a combat resolved
type CombatResultMessage struct {
	VictorID string `json:"victor_id,omitempty"`
	LoserID  string `json:"loser_id,omitempty"`
	Escaped  bool   `json:"escaped"`
}

// IntentType names a client request. Intents that reference stale state
// are absorbed as no-ops by the engine's guard clauses.
type IntentType string

const (
	IntentJoinRoom        IntentType = "join_room"
	IntentAddVirtual      IntentType = "add_virtual"
	IntentStartGame       IntentType = "start_game"
	IntentMove            IntentType = "move"
	IntentTeleport        IntentType = "teleport"
	IntentAttack          IntentType = "attack"
	IntentCombatAction    IntentType = "combat_action"
	IntentToggleDoor      IntentType = "toggle_door"
	IntentPassTurn        IntentType = "pass_turn"
	IntentUpdateInventory IntentType = "update_inventory"
	IntentToggleDebug     IntentType = "toggle_debug"
	IntentLeaveEndView    IntentType = "leave_end_view"
	IntentLeaveRoom       IntentType = "leave_room"
)

// ClientMessage is the envelope of every client request
type ClientMessage struct {
	Type    IntentType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope of every server emission
type ServerMessage struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// JoinMessage asks to join (or create) a room
type JoinMessage struct {
	RoomCode    string                `json:"room_code"`
	Name        string                `json:"name"`
	Character   string                `json:"character"`
	LifePoints  int                   `json:"life_points"`
	SpeedPoints int                   `json:"speed_points"`
	DicePref    models.DicePreference `json:"dice_pref"`
}

// JoinedMessage confirms a join and reports the assigned player id
type JoinedMessage struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	IsHost   bool   `json:"is_host"`
}

// AddVirtualMessage asks the host to add an AI player to the room
type AddVirtualMessage struct {
	Aggressive bool `json:"aggressive"`
}

// StartGameMessage starts the game, optionally on a custom map
type StartGameMessage struct {
	Map *models.GameMap `json:"map,omitempty"`
}

// PathMessage carries the tile sequence of a requested walk
type PathMessage struct {
	Path []models.Position `json:"path"`
}

// PositionMessage carries a single target coordinate
type PositionMessage struct {
	Position models.Position `json:"position"`
}

// AttackMessage asks to start combat with an adjacent player
type AttackMessage struct {
	TargetID string `json:"target_id"`
}

// CombatActionMessage carries the combatant's chosen move
type CombatActionMessage struct {
	Action models.CombatMove `json:"action"`
}

// InventoryMessage carries the client's resolved inventory after an
// inventory-full prompt
type InventoryMessage struct {
	Inventory []models.Item `json:"inventory"`
}

// ErrorMessage reports a rejected request to the sender
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
