// Package server exposes the room manager over websockets and the stats
// store over plain HTTP.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/protocol"
	"github.com/loveletter-online/server-go/internal/room"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
	sendBuffer     = 256
)

// WSHandler upgrades connections and hands them to a room.
type WSHandler struct {
	rooms    *room.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket endpoint over the room registry.
// Origin checking is left to the deployment's reverse proxy.
func NewWSHandler(rooms *room.Manager, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		rooms:  rooms,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws. A `room` query parameter joins an existing
// room by code; without one a fresh room is created.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var rm *room.Room
	if code := r.URL.Query().Get("room"); code != "" {
		var err error
		rm, err = h.rooms.Get(code)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
	} else {
		rm = h.rooms.Create()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: h.logger,
	}
	client.Send(protocol.Encode(protocol.RoomInfo{
		Type:   protocol.ServerRoomInfo,
		RoomID: rm.ID(),
	}))
	go client.writePump()
	go client.readPump(rm)
}

// wsClient adapts one websocket connection to the room.Conn interface.
// Sends are buffered; a client that cannot keep up loses messages rather
// than stalling the room.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	logger *zap.Logger
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		c.logger.Warn("dropping message to slow client", zap.String("conn_id", c.id))
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() { close(c.send) })
}

func (c *wsClient) readPump(rm *room.Room) {
	defer func() {
		rm.HandleDisconnect(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		rm.HandleMessage(c, message)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	// Channel closed: the room shut the connection down.
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
