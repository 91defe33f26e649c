package handler

import (
	"net/http"

	"grievancedesk/backend/internal/notification"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true"
	ns, err := h.notifications.List(c.Request.Context(), actorFrom(c), unread)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", ns)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", gin.H{"count": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Notification marked as read", n)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": n})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Notification deleted", nil)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	p, err := h.notifications.Preferences(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", p)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var upd notification.PreferenceUpdate
	if err := bind(c, &upd); err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.notifications.UpdatePreferences(c.Request.Context(), actorFrom(c), upd)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Preferences updated", p)
}

// TelegramLinkCode issues a code the caller sends to the bot as /start <code>.
func (h *Handler) TelegramLinkCode(c *gin.Context) {
	if h.telegram == nil {
		h.respondUnavailable(c, "telegram notifications are disabled")
		return
	}
	code, err := h.telegram.Issue(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, "Send the command to the bot before the code expires", gin.H{
		"code":      code.Code,
		"command":   "/start " + code.Code,
		"expiresAt": code.ExpiresAt,
	})
}
