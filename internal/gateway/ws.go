package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/streampulse/notify/internal/bus"
	"github.com/streampulse/notify/internal/config"
)

// controlMessage is the client→gateway frame requesting or cancelling a
// topic subscription. Topics are client-facing names: "global" or
// "channel:<id>". The personal topic is managed by the gateway and cannot
// be addressed here, so a client can never subscribe to another user's feed.
type controlMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`
}

// WSHandler upgrades HTTP requests to WebSocket connections and runs one
// read pump and one write pump per client.
type WSHandler struct {
	hub      *Hub
	cfg      *config.Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *Hub, cfg *config.Config, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced upstream by the edge proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles GET /ws?user=<id>.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user is required", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn, err := h.hub.Connect(userID)
	if err != nil {
		h.logger.Error("hub connect failed", zap.String("user_id", userID), zap.Error(err))
		ws.Close() //nolint:errcheck
		return
	}

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

// readPump processes control frames until the client goes away. Subscribe
// requests are rate-limited per connection so a misbehaving client cannot
// churn bus subscriptions.
func (h *WSHandler) readPump(ws *websocket.Conn, conn *Conn) {
	defer func() {
		h.hub.Disconnect(conn)
		ws.Close() //nolint:errcheck
	}()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.SubscribeRate), h.cfg.SubscribeRate)

	for {
		var msg controlMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		if !limiter.Allow() {
			h.logger.Warn("subscribe rate exceeded, dropping frame",
				zap.String("user_id", conn.UserID()))
			continue
		}

		topic, ok := resolveTopic(msg.Topic)
		if !ok {
			h.logger.Debug("ignoring invalid topic",
				zap.String("user_id", conn.UserID()),
				zap.String("topic", msg.Topic))
			continue
		}

		switch msg.Action {
		case "subscribe":
			if err := h.hub.Subscribe(conn, topic); err != nil {
				h.logger.Warn("subscribe failed",
					zap.String("topic", topic), zap.Error(err))
			}
		case "unsubscribe":
			h.hub.Unsubscribe(conn, topic)
		}
	}
}

// writePump forwards enriched messages from the hub and keeps the
// connection alive with pings. Exits when the hub closes the outbound
// channel or a write fails.
func (h *WSHandler) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		ws.Close() //nolint:errcheck
	}()

	for {
		select {
		case msg, ok := <-conn.Outbound():
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := ws.WriteJSON(msg); err != nil {
				h.hub.Disconnect(conn)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteDeadline))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Disconnect(conn)
				return
			}
		}
	}
}

// resolveTopic maps a client-facing topic name to its bus subject.
func resolveTopic(name string) (string, bool) {
	switch {
	case name == "global":
		return bus.GlobalTopic, true
	case strings.HasPrefix(name, "channel:"):
		id := strings.TrimPrefix(name, "channel:")
		if id == "" {
			return "", false
		}
		return bus.ChannelTopic(id), true
	default:
		return "", false
	}
}
