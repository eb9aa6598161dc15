package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// NotificationStream handles GET /api/v1/notifications/stream. It holds the
// connection open and writes server-sent events as notifications for the
// authenticated user arrive.
func (h *Handler) NotificationStream(c *gin.Context) {
	claims := currentClaims(c)

	session := h.dispatcher.Register(claims.UserID())
	defer h.dispatcher.Unregister(session)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-session.C:
			if !ok {
				return false
			}
			session.Touch()
			c.SSEvent(n.Type, n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
