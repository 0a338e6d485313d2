package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/logger"
	"github.com/oggyb/vivah/internal/relay"
)

const maxFrameBytes = 64 * 1024

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

// serveWS upgrades an authenticated request into the member's live session.
// A second connection of the same member replaces the first.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	log := logger.FromContext(r.Context(), h.appCtx.Logger)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := relay.NewSession(userID)
	h.hub.Register(ctx, s)
	defer h.hub.Unregister(context.WithoutCancel(ctx), s)

	go h.writeLoop(conn, s, cancel)

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read ended", "err", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		var f relay.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			h.hub.Reject(s, "", svcErr.Validation("malformed frame"))
			continue
		}
		h.hub.Handle(ctx, s, f)
	}
}

// writeLoop is the only writer on conn. It drains the session queue and
// keeps the connection alive with pings until the session closes.
func (h *Handler) writeLoop(conn *websocket.Conn, s *relay.Session, cancel context.CancelFunc) {
	ticker := time.NewTicker(h.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case ev := <-s.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return
		}
	}
}
