package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// MessageHandler consumes raw inbound frames from a connection
type MessageHandler interface {
	HandleMessage(conn *Connection, message []byte)
}

// Connection wraps a WebSocket with a buffered outbound queue so the
// engine never blocks on a slow client.
type Connection struct {
	ws   *websocket.Conn
	send chan []byte
}

// NewConnection wraps an upgraded WebSocket
func NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

// ReadPump reads frames until the connection drops, handing each to h.
// Runs in the connection's own goroutine.
func (c *Connection) ReadPump(h MessageHandler) {
	defer c.ws.Close()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		h.HandleMessage(c, message)
	}
}

// WritePump drains the outbound queue and keeps the connection alive
// with periodic pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a JSON message for delivery. A client that cannot
// keep up with the queue is disconnected.
func (c *Connection) SendMessage(msg interface{}) error {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- messageBytes:
	default:
		log.Warn().Msg("outbound queue full, dropping connection")
		c.ws.Close()
	}
	return nil
}

// Close shuts the outbound queue down, which unwinds the write pump
func (c *Connection) Close() {
	close(c.send)
}
