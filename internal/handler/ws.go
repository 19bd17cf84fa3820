package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/velodepot/bikeshop/internal/realtime"
)

// wsConn is what the read loop needs from a connection: the hub's
// write side plus reading client frames.  *websocket.Conn satisfies
// it; tests use a fake.
type wsConn interface {
	realtime.Conn
	ReadMessage() (int, []byte, error)
}

// WSHandler upgrades HTTP requests into hub-managed websocket
// connections.
type WSHandler struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client connects cross-origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the connection, admits it to the hub and runs the
// read loop until the client goes away.  An admission rejection is
// answered over the socket with an error envelope and close code 1013
// (try again later).
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the HTTP error
	}

	ip := c.RealIP()
	if err := h.Hub.Add(conn, ip); err != nil {
		msg := websocket.FormatCloseMessage(1013, err.Error())
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
		return nil
	}

	_ = h.Hub.SendTo(conn, "connected", echo.Map{"message": "verbonden met real-time updates"})

	h.readLoop(conn)
	h.Hub.Remove(conn)
	_ = conn.Close()
	return nil
}

// readLoop consumes client frames.  The only client message with
// meaning is a ping request, either a JSON object whose type field is
// "ping" or the bare word; everything else is discarded.  A read error
// ends the connection.
func (h *WSHandler) readLoop(conn wsConn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !isPingFrame(msg) {
			continue
		}
		if err := h.Hub.SendTo(conn, "pong", struct{}{}); err != nil {
			return
		}
	}
}

func isPingFrame(msg []byte) bool {
	if string(msg) == "ping" {
		return true
	}
	var in struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(msg, &in) == nil && in.Type == "ping"
}
