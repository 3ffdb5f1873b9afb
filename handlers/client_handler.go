package handlers

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"gridbound/server/messages"
	"gridbound/server/models"
	"gridbound/server/network"
	"gridbound/server/services"
)

const defaultRoomCapacity = 4

// ClientHandler manages a single client connection, translating intents
// into engine calls and cleaning up when the connection drops.
type ClientHandler struct {
	conn    *network.Connection
	engine  *services.Engine
	manager *ClientManager
	limiter *rate.Limiter
	player  *models.Player
	room    *models.Room
}

// HandleClientConnection owns a freshly upgraded WebSocket for its whole
// lifetime. Blocks until the connection closes, then unwinds whatever
// the player held in its room.
func HandleClientConnection(wsConn *websocket.Conn, engine *services.Engine, manager *ClientManager) {
	conn := network.NewConnection(wsConn)
	handler := &ClientHandler{
		conn:    conn,
		engine:  engine,
		manager: manager,
		limiter: rate.NewLimiter(rate.Limit(20), 40),
	}

	go conn.WritePump()
	conn.ReadPump(handler)

	if handler.player != nil {
		handler.leave()
	}
}

// leave unwinds the player's room membership after a disconnect or an
// explicit leave intent.
func (h *ClientHandler) leave() {
	if session := h.engine.Sessions.Session(h.room.Code); session != nil {
		h.engine.Turns.HandlePlayerExit(session, h.player.ID)
	} else {
		h.room.RemovePlayer(h.player.ID)
	}
	h.manager.Unregister(h.player.ID)
	log.Info().Str("player", h.player.ID).Str("room", h.room.Code).Msg("client disconnected")
	h.player = nil
	h.room = nil
}

// HandleMessage dispatches one inbound frame. Over-rate clients have
// their frames dropped rather than the connection torn down.
func (h *ClientHandler) HandleMessage(conn *network.Connection, message []byte) {
	if !h.limiter.Allow() {
		log.Warn().Msg("client over rate limit, dropping frame")
		return
	}

	var msg messages.ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Msg("malformed client frame")
		return
	}

	if msg.Type == messages.IntentJoinRoom {
		h.handleJoin(msg.Payload)
		return
	}
	if h.player == nil {
		h.sendError("NOT_JOINED", "join a room first")
		return
	}

	switch msg.Type {
	case messages.IntentAddVirtual:
		h.handleAddVirtual(msg.Payload)
	case messages.IntentStartGame:
		h.handleStartGame(msg.Payload)
	case messages.IntentMove:
		h.handleMove(msg.Payload)
	case messages.IntentTeleport:
		h.handleTeleport(msg.Payload)
	case messages.IntentAttack:
		h.handleAttack(msg.Payload)
	case messages.IntentCombatAction:
		h.handleCombatAction(msg.Payload)
	case messages.IntentToggleDoor:
		h.handleToggleDoor(msg.Payload)
	case messages.IntentPassTurn:
		h.handlePassTurn()
	case messages.IntentUpdateInventory:
		h.handleUpdateInventory(msg.Payload)
	case messages.IntentToggleDebug:
		h.handleToggleDebug()
	case messages.IntentLeaveEndView:
		h.handleLeaveEndView()
	case messages.IntentLeaveRoom:
		h.leave()
	default:
		h.sendError("UNKNOWN_INTENT", "unknown intent type")
	}
}

func (h *ClientHandler) handleJoin(payload json.RawMessage) {
	if h.player != nil {
		h.sendError("ALREADY_JOINED", "already in a room")
		return
	}
	var join messages.JoinMessage
	if err := json.Unmarshal(payload, &join); err != nil || join.RoomCode == "" || join.Name == "" {
		h.sendError("BAD_JOIN", "room code and name are required")
		return
	}

	room, created := h.manager.EnsureRoom(join.RoomCode, nil, defaultRoomCapacity)
	if room.Locked || room.IsActive {
		h.sendError("ROOM_LOCKED", "game already started")
		return
	}
	if len(room.Players) >= room.Capacity {
		h.sendError("ROOM_FULL", "room is full")
		return
	}
	if join.Character != "" && room.TakenCharacters[join.Character] {
		h.sendError("CHARACTER_TAKEN", "character already taken")
		return
	}

	attrs := models.Attributes{
		LifePoints:    4,
		SpeedPoints:   4,
		OffensePoints: 4,
		DefensePoints: 4,
		DicePref:      join.DicePref,
	}
	if join.LifePoints > 0 {
		attrs.LifePoints = join.LifePoints
	}
	if join.SpeedPoints > 0 {
		attrs.SpeedPoints = join.SpeedPoints
	}
	attrs.CurrentHP = attrs.LifePoints
	attrs.CurrentSpeed = attrs.SpeedPoints

	player := &models.Player{
		ID:         uuid.NewString(),
		Name:       join.Name,
		Character:  join.Character,
		IsHost:     created,
		Attributes: attrs,
	}
	room.Players = append(room.Players, player)
	if join.Character != "" {
		room.TakenCharacters[join.Character] = true
	}

	h.player = player
	h.room = room
	h.manager.Register(player.ID, room.Code, h)
	log.Info().Str("room", room.Code).Str("player", player.ID).Bool("host", player.IsHost).Msg("player joined")

	h.conn.SendMessage(messages.ServerMessage{Type: messages.EventJoined, Payload: messages.JoinedMessage{
		RoomCode: room.Code,
		PlayerID: player.ID,
		IsHost:   player.IsHost,
	}})
}

func (h *ClientHandler) handleAddVirtual(payload json.RawMessage) {
	if !h.player.IsHost || h.room.Locked {
		return
	}
	if len(h.room.Players) >= h.room.Capacity {
		h.sendError("ROOM_FULL", "room is full")
		return
	}
	var req messages.AddVirtualMessage
	json.Unmarshal(payload, &req)

	dice := models.DiceDefense
	if req.Aggressive {
		dice = models.DiceAttack
	}
	bot := &models.Player{
		ID:           uuid.NewString(),
		Name:         "Bot " + uuid.NewString()[:4],
		IsVirtual:    true,
		IsAggressive: req.Aggressive,
		Attributes: models.Attributes{
			LifePoints:    4,
			SpeedPoints:   4,
			OffensePoints: 4,
			DefensePoints: 4,
			CurrentHP:     4,
			CurrentSpeed:  4,
			DicePref:      dice,
		},
	}
	h.room.Players = append(h.room.Players, bot)
	log.Info().Str("room", h.room.Code).Str("bot", bot.ID).Bool("aggressive", req.Aggressive).Msg("virtual player added")
}

func (h *ClientHandler) handleStartGame(payload json.RawMessage) {
	if !h.player.IsHost || h.room.IsActive {
		return
	}
	if len(h.room.Players) < 2 {
		h.sendError("NOT_ENOUGH_PLAYERS", "at least two players are required")
		return
	}

	var req messages.StartGameMessage
	json.Unmarshal(payload, &req)
	if req.Map != nil {
		h.room.Map = req.Map
	}
	if h.room.Map == nil {
		h.room.Map = DefaultMap(len(h.room.Players))
	}
	h.room.Locked = true

	session := h.engine.Sessions.InitialiseGame(h.room)
	h.engine.Turns.StartNextTurn(session)
}

func (h *ClientHandler) handleMove(payload json.RawMessage) {
	var req messages.PathMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil || !h.holdsTurn() {
		return
	}
	// MovePlayer paces its steps with real-time delays
	go h.engine.Movement.MovePlayer(h.player.ID, session, req.Path)
}

func (h *ClientHandler) handleTeleport(payload json.RawMessage) {
	var req messages.PositionMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil || !h.holdsTurn() {
		return
	}
	h.engine.Movement.TeleportPlayer(h.player.ID, session, req.Position)
}

func (h *ClientHandler) handleAttack(payload json.RawMessage) {
	var req messages.AttackMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil || !h.holdsTurn() {
		return
	}
	h.engine.Combat.StartCombat(h.player.ID, req.TargetID, session)
}

func (h *ClientHandler) handleCombatAction(payload json.RawMessage) {
	var req messages.CombatActionMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil {
		return
	}
	h.engine.Combat.CombatMoveBy(session, h.player.ID, req.Action)
}

func (h *ClientHandler) handleToggleDoor(payload json.RawMessage) {
	var req messages.PositionMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil || !h.holdsTurn() {
		return
	}
	h.engine.Actions.ToggleDoor(h.player.ID, session, req.Position)
}

func (h *ClientHandler) handlePassTurn() {
	session := h.session()
	if session == nil || !h.holdsTurn() {
		return
	}
	h.engine.Turns.EndTurn(session)
}

func (h *ClientHandler) handleUpdateInventory(payload json.RawMessage) {
	var req messages.InventoryMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	session := h.session()
	if session == nil {
		return
	}
	h.engine.Actions.UpdatePlayerAttributes(h.player.ID, session, req.Inventory)
}

func (h *ClientHandler) handleToggleDebug() {
	session := h.session()
	if session == nil {
		return
	}
	h.engine.Sessions.ToggleDebug(session, h.player.ID)
}

func (h *ClientHandler) handleLeaveEndView() {
	session := h.session()
	if session == nil {
		return
	}
	h.engine.Turns.LeaveWinnerView(session, h.player.ID)
}

func (h *ClientHandler) session() *services.GameSession {
	if h.room == nil {
		return nil
	}
	return h.engine.Sessions.Session(h.room.Code)
}

func (h *ClientHandler) holdsTurn() bool {
	return h.engine.Sessions.CurrentPlayerID(h.room.Code) == h.player.ID
}

func (h *ClientHandler) sendError(code, message string) {
	h.conn.SendMessage(messages.ServerMessage{Type: messages.EventError, Payload: messages.ErrorMessage{
		Code:    code,
		Message: message,
	}})
}
