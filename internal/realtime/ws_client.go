package realtime

import (
	"context"
	"encoding/json"
	"time"

	"grievancedesk/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	sendBuffer = 64
)

// TopicAuthorizer decides whether the connected user may follow a grievance.
type TopicAuthorizer func(ctx context.Context, grievanceID uint) error

// WebSocketClient implements Client over a gorilla websocket.
type WebSocketClient struct {
	UserID    string
	Conn      *websocket.Conn
	Hub       *Hub
	Send      chan models.Event
	Authorize TopicAuthorizer
	Log       logrus.FieldLogger
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, userID string, authorize TopicAuthorizer) *WebSocketClient {
	return &WebSocketClient{
		UserID:    userID,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.Event, sendBuffer),
		Authorize: authorize,
		Log:       hub.log.WithField("user", userID),
	}
}

func (c *WebSocketClient) GetUserID() string                   { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump handles subscribe and unsubscribe commands from the browser.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.WithError(err).Warn("websocket read failed")
			}
			return
		}

		var sub models.Subscription
		if err := json.Unmarshal(message, &sub); err != nil || sub.GrievanceID == 0 {
			c.Log.Debug("ignoring malformed subscription frame")
			continue
		}

		switch sub.Action {
		case "subscribe":
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.Authorize(ctx, sub.GrievanceID)
			cancel()
			if err != nil {
				c.Log.WithError(err).WithField("grievance_id", sub.GrievanceID).Info("subscription refused")
				continue
			}
			c.Hub.Subscribe(c, sub.GrievanceID)
		case "unsubscribe":
			c.Hub.Unsubscribe(c, sub.GrievanceID)
		}
	}
}

// writePump writes events from Send to the socket and keeps it alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
