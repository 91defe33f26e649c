package handler

import (
	"context"
	"net/http"

	"grievancedesk/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the configured frontend origin once it is part of AppConfig.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request and registers the
// connection under the user's external id.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	if h.hub == nil {
		h.respondUnavailable(c, "realtime updates are disabled")
		return
	}
	actor := actorFrom(c)
	externalID := c.GetString(externalIDKey)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	authorize := func(ctx context.Context, grievanceID uint) error {
		_, err := h.workflow.Get(ctx, actor, grievanceID)
		return err
	}
	client := realtime.NewWebSocketClient(h.hub, conn, externalID, authorize)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}

func (h *Handler) respondUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, errorBody("unavailable", message))
}
