package server

import (
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"zenflow/internal/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// registerSync serves the websocket refresh feed. Every committed write is
// forwarded as {"type":"refresh",...}; clients re-fetch /snapshot.
func registerSync(r chi.Router, basePath string, e engine.Engine, origins []string, log *zap.Logger) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(req *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			origin := req.Header.Get("Origin")
			for _, allowed := range origins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	r.Get(path.Join(basePath, "sync"), func(w http.ResponseWriter, req *http.Request) {
		p, ok := principalFromContext(req.Context())
		if !ok {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
			return
		}
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()
		log := log.With(zap.String("user_id", p.User.ID))

		changes, unsubscribe := e.Events.Subscribe(32)
		defer unsubscribe()

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						log.Debug("websocket read", zap.Error(err))
					}
					return
				}
			}
		}()

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(map[string]string{"type": "connected", "user_id": p.User.ID}); err != nil {
			return
		}

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-req.Context().Done():
				return
			case c, ok := <-changes:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(c); err != nil {
					log.Debug("websocket write", zap.Error(err))
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
