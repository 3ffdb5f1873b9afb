package models

// Position is a grid coordinate. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GameMode selects the win condition for a map
type GameMode string

const (
	ModeCaptureTheFlag GameMode = "ctf"
	ModeBattleRoyale   GameMode = "royale"
)

// TileType enumerates the terrain kinds a tile can have
type TileType int

const (
	TileGrass TileType = iota
	TileWater
	TileIce
	TileRock
	TileOpenDoor
	TileClosedDoor
)

// Weight returns the movement cost of entering a tile of this type.
// Ice is free to cross, water costs double.
func (t TileType) Weight() int {
	switch t {
	case TileWater:
		return 2
	case TileIce:
		return 0
	default:
		return 1
	}
}

// Traversable reports whether players can ever stand on this tile type
func (t TileType) Traversable() bool {
	return t != TileRock && t != TileClosedDoor
}

// ItemType enumerates the item kinds that can sit on tiles or in inventories
type ItemType string

const (
	ItemPotion  ItemType = "potion"
	ItemBattery ItemType = "battery"
	ItemSword   ItemType = "sword"
	ItemShield  ItemType = "shield"
	ItemBoots   ItemType = "boots"
	ItemTrap    ItemType = "trap"
	ItemFlag    ItemType = "flag"
	ItemMystery ItemType = "mystery"
	ItemStart   ItemType = "start"
)

// AllPickupItems lists every concrete item type a mystery box may resolve to
var AllPickupItems = []ItemType{
	ItemPotion, ItemBattery, ItemSword, ItemShield, ItemBoots, ItemTrap,
}

// OffensiveItems are preferred by aggressive virtual players
var OffensiveItems = []ItemType{ItemSword, ItemBattery, ItemTrap}

// DefensiveItems are preferred by defensive virtual players
var DefensiveItems = []ItemType{ItemShield, ItemPotion, ItemBoots}

// Item is owned either by a tile (on the grid) or by a player's
// inventory, never both.
type Item struct {
	Type     ItemType `json:"type"`
	Position Position `json:"position"`
}

// Tile is one cell of the map grid. Player is a non-owning back-reference;
// Player.Position is the source of truth for occupancy.
type Tile struct {
	Type   TileType `json:"type"`
	Player *Player  `json:"-"`
	Item   *Item    `json:"item,omitempty"`
}

// GameMap is the 2D grid a room plays on, plus its declared size, mode
// and flat item list.
type GameMap struct {
	Name  string     `json:"name"`
	Size  int        `json:"size"`
	Mode  GameMode   `json:"mode"`
	Grid  [][]Tile   `json:"grid"`
	Items []Item     `json:"items"`
}

// NewGameMap creates an all-grass square map of the given size
func NewGameMap(name string, size int, mode GameMode) *GameMap {
	grid := make([][]Tile, size)
	for y := range grid {
		grid[y] = make([]Tile, size)
	}
	return &GameMap{Name: name, Size: size, Mode: mode, Grid: grid}
}

// TileAt returns the tile at pos, or nil if pos is out of bounds
func (m *GameMap) TileAt(pos Position) *Tile {
	if pos.Y < 0 || pos.Y >= len(m.Grid) || pos.X < 0 || pos.X >= len(m.Grid[pos.Y]) {
		return nil
	}
	return &m.Grid[pos.Y][pos.X]
}
