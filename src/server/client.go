package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	maxMessageSize = 4096 // clients only send control frames
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------
// Client is one websocket subscriber connection.
// -----------------------------------------------------------------------------

type Client struct {
	server    *Server
	conn      *websocket.Conn
	sub       *Subscriber
	writeWait time.Duration
	pongWait  time.Duration
}

// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		server:    s,
		conn:      conn,
		sub:       s.hub.Register(NewSubscriber(TransportWebsocket)),
		writeWait: s.writeTimeout(),
		pongWait:  2 * s.hub.KeepAlive,
	}

	go client.readPump()
	client.writePump(c)
}

// -----------------------------------------------------------------------------
// readPump - drains incoming frames and watches the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer c.sub.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends payloads and pings until the subscriber goes away
// -----------------------------------------------------------------------------

func (c *Client) writePump(gc *gin.Context) {
	defer c.conn.Close()

	if err := c.server.hub.Serve(gc.Request.Context(), c.sub, c); err != nil {
		c.server.Logger.Debug("Websocket subscriber %s left: %v", c.sub.ID(), err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// -----------------------------------------------------------------------------

func (c *Client) WritePayload(payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) WriteKeepAlive() error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}
