package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freelance-tracker/internal/apperrors"
	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/middleware"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/services"
)

const (
	DefaultHeartbeat = 30 * time.Second

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// EventsHandler streams project events over Server-Sent Events and
// WebSocket.
type EventsHandler struct {
	tracker   *services.Tracker
	hub       *realtime.Hub
	log       *zap.Logger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func NewEventsHandler(tracker *services.Tracker, hub *realtime.Hub, allowedOrigins []string, heartbeat time.Duration, log *zap.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{
		tracker:   tracker,
		hub:       hub,
		log:       logger.OrNop(log),
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

func endsProjectStream(event string) bool {
	return event == realtime.EventProjectDeleted
}

// ProjectEvents godoc
// @Summary     Stream project events
// @Description Server-Sent Events for every change to the project. A comment line is sent every 30 s to keep proxies from closing the connection.
// @Tags        events
// @Produce     text/event-stream
// @Security    Bearer
// @Param       project_id path string true "Project ID (UUID)"
// @Success     200
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{project_id}/events [get]
func (h *EventsHandler) ProjectEvents(c *gin.Context) {
	p, ok := ownedProject(c, h.tracker)
	if !ok {
		return
	}
	sub := h.hub.Subscribe(p.ID)
	ownerID, _ := middleware.OwnerID(c)
	if _, err := h.tracker.ProjectOwnedBy(c.Request.Context(), ownerID, p.ID); err != nil {
		sub.Close()
		respondError(c, err)
		return
	}
	h.serveSSE(c, sub, endsProjectStream)
}

// ClientEvents godoc
// @Summary     Stream project events to a client
// @Description Ends after the token is regenerated or revoked, or the project is deleted.
// @Tags        client
// @Produce     text/event-stream
// @Param       token path string true "Project access token"
// @Success     200
// @Failure     404 {object} models.ErrorResponse
// @Router      /client/{token}/events [get]
func (h *EventsHandler) ClientEvents(c *gin.Context) {
	sub, ok := h.subscribeClient(c)
	if !ok {
		return
	}
	h.serveSSE(c, sub, realtime.EndsClientStream)
}

// subscribeClient subscribes to the project behind :token. The token is
// resolved again once the subscription is registered: a rotation that lands
// before that point is caught by the second lookup, and one that lands after
// it is delivered as an event that ends the stream.
func (h *EventsHandler) subscribeClient(c *gin.Context) (*realtime.Subscription, bool) {
	ctx := c.Request.Context()
	token := c.Param("token")

	p, err := h.tracker.ResolveToken(ctx, token)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	sub := h.hub.Subscribe(p.ID)

	current, err := h.tracker.ResolveToken(ctx, token)
	if err == nil && current.ID != p.ID {
		err = apperrors.NotFound("project not found")
	}
	if err != nil {
		sub.Close()
		respondError(c, err)
		return nil, false
	}
	return sub, true
}

func (h *EventsHandler) serveSSE(c *gin.Context, sub *realtime.Subscription, ends func(string) bool) {
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = c.Writer.WriteString(": connected\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.SSEvent(ev.Type, ev)
			c.Writer.Flush()
			if ends(ev.Type) {
				return
			}
		}
	}
}

// ClientWebSocket godoc
// @Summary     Project events over WebSocket
// @Description Same events as the client SSE stream, as JSON text frames.
// @Tags        client
// @Param       token path string true "Project access token"
// @Success     101
// @Failure     404 {object} models.ErrorResponse
// @Router      /client/{token}/ws [get]
func (h *EventsHandler) ClientWebSocket(c *gin.Context) {
	sub, ok := h.subscribeClient(c)
	if !ok {
		return
	}
	defer sub.Close()
	projectID := sub.ProjectID().String()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The reader only drains control frames and notices disconnects; every
	// write happens on this goroutine.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug("websocket read failed", zap.String("project_id", projectID), zap.Error(err))
				}
				return
			}
		}
	}()

	write := func(v interface{}) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v) == nil
	}

	if !write(realtime.Event{Type: "connected", ProjectID: projectID, At: time.Now().UTC()}) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok || !write(ev) {
				return
			}
			if realtime.EndsClientStream(ev.Type) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ev.Type),
					time.Now().Add(writeWait))
				return
			}
		}
	}
}
