package models

// Room groups the players sharing one game. Code is the short numeric
// identifier clients join with. IsActive flips once the host starts the
// game session, which is distinct from the room merely existing.
type Room struct {
	Code            string          `json:"code"`
	Players         []*Player       `json:"players"`
	Map             *GameMap        `json:"map"`
	Capacity        int             `json:"capacity"`
	Locked          bool            `json:"locked"`
	TakenCharacters map[string]bool `json:"-"`
	IsActive        bool            `json:"is_active"`
}

// NewRoom creates an empty, unlocked room for the given map
func NewRoom(code string, gameMap *GameMap, capacity int) *Room {
	return &Room{
		Code:            code,
		Map:             gameMap,
		Capacity:        capacity,
		TakenCharacters: make(map[string]bool),
	}
}

// PlayerByID returns the room member with the given connection id, or nil
func (r *Room) PlayerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// RemovePlayer drops the player with the given id from the member list
func (r *Room) RemovePlayer(id string) {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}
