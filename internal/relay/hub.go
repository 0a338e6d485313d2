// Package relay keeps the live sessions of connected members and pushes
// messages, typing indicators and presence changes to them.
//
// The session table lives only as long as the process. Each member has at
// most one entry, written only by that member's own session: a new
// connection replaces the old one, and a closing session removes the entry
// only if it still owns it.
package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oggyb/vivah/internal/app"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/service/dto"
)

// Messenger is the messaging surface the relay needs.
type Messenger interface {
	SendMessage(ctx context.Context, senderID, receiverID, content string) (*dto.Message, error)
	MarkMessageRead(ctx context.Context, messageID, actorID string) (*dto.Message, error)
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

// Hub is the process-wide presence map.
type Hub struct {
	appCtx      *app.AppContext
	messenger   Messenger
	presenceTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(appCtx *app.AppContext, messenger Messenger, presenceTTL time.Duration) *Hub {
	if presenceTTL <= 0 {
		presenceTTL = 2 * time.Minute
	}
	return &Hub{
		appCtx:      appCtx,
		messenger:   messenger,
		presenceTTL: presenceTTL,
		sessions:    make(map[string]*Session),
	}
}

// Register makes s the live session of its member.
//
// Behavior:
//   - A previous session of the same member is closed and replaced.
//   - The new session receives the current online list; every other session
//     receives a presence event.
func (h *Hub) Register(ctx context.Context, s *Session) {
	h.mu.Lock()
	prev := h.sessions[s.UserID]
	h.sessions[s.UserID] = s
	count := len(h.sessions)
	h.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	h.appCtx.Metrics.SetOnlineSessions(count)
	h.appCtx.Logger.Debug("session registered", "user", s.UserID, "session", s.ID, "replaced", prev != nil)

	if err := h.appCtx.RedisCache.MarkOnline(ctx, s.UserID, h.presenceTTL); err != nil {
		h.appCtx.Logger.Warn("presence write failed", "user", s.UserID, "err", err)
	}

	s.enqueue(Event{Type: EventOnlineUsers, Users: h.OnlineUsers()})
	if prev == nil {
		h.broadcastPresence(s.UserID, true)
	}
}

// Unregister removes s if it is still its member's live session.
func (h *Hub) Unregister(ctx context.Context, s *Session) {
	h.mu.Lock()
	owned := h.sessions[s.UserID] == s
	if owned {
		delete(h.sessions, s.UserID)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	s.Close()
	if !owned {
		return
	}

	h.appCtx.Metrics.SetOnlineSessions(count)
	h.appCtx.Logger.Debug("session unregistered", "user", s.UserID, "session", s.ID)

	if err := h.appCtx.RedisCache.MarkOffline(ctx, s.UserID); err != nil {
		h.appCtx.Logger.Warn("presence clear failed", "user", s.UserID, "err", err)
	}
	h.broadcastPresence(s.UserID, false)
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// OnlineUsers returns the ids with a live session, sorted.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		out = append(out, id)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// DeliverMessage pushes a persisted message to the receiver's session.
// It reports false when the receiver is offline or its queue is full.
func (h *Hub) DeliverMessage(receiverID string, m dto.Message) bool {
	return h.send(receiverID, Event{Type: EventMessage, Message: &m})
}

// Handle processes one frame received from s.
func (h *Hub) Handle(ctx context.Context, s *Session, f Frame) {
	switch f.Type {
	case FrameMessage:
		m, err := h.messenger.SendMessage(ctx, s.UserID, f.To, f.Content)
		if err != nil {
			s.enqueue(errorEvent(f.ClientID, err))
			return
		}
		s.enqueue(Event{Type: EventMessageAck, ClientID: f.ClientID, Message: m})

	case FrameTyping:
		h.relayTyping(ctx, s, f)

	case FrameRead:
		m, err := h.messenger.MarkMessageRead(ctx, f.MessageID, s.UserID)
		if err != nil {
			s.enqueue(errorEvent(f.ClientID, err))
			return
		}
		s.enqueue(Event{Type: EventReadAck, ClientID: f.ClientID, Message: m})
		h.send(m.SenderID, Event{Type: EventRead, From: s.UserID, MessageID: m.ID, ReadAt: m.ReadAt})

	case FramePing:
		if err := h.appCtx.RedisCache.MarkOnline(ctx, s.UserID, h.presenceTTL); err != nil {
			h.appCtx.Logger.Warn("presence refresh failed", "user", s.UserID, "err", err)
		}
		s.enqueue(Event{Type: EventPong})

	default:
		s.enqueue(errorEvent(f.ClientID, svcErr.Validation("unknown event type %q", f.Type)))
	}
}

// relayTyping forwards a typing indicator when the counterpart is online and
// the pair may message each other. Nothing is stored and the sender gets no
// reply.
func (h *Hub) relayTyping(ctx context.Context, s *Session, f Frame) {
	if f.To == "" || !h.IsOnline(f.To) {
		return
	}
	ok, err := h.messenger.CanMessage(ctx, s.UserID, f.To)
	if err != nil || !ok {
		return
	}
	typing := f.Typing
	h.send(f.To, Event{Type: EventTyping, From: s.UserID, Typing: &typing})
}

func (h *Hub) send(userID string, ev Event) bool {
	h.mu.RLock()
	s := h.sessions[userID]
	h.mu.RUnlock()
	if s == nil {
		return false
	}
	return s.enqueue(ev)
}

func (h *Hub) broadcastPresence(userID string, online bool) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id != userID {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(Event{Type: EventPresence, UserID: userID, Online: &online})
	}
}

// CloseAll drops every session. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	h.appCtx.Metrics.SetOnlineSessions(0)
}

func errorEvent(clientID string, err error) Event {
	return Event{
		Type:     EventError,
		ClientID: clientID,
		Error:    &ErrorBody{Kind: string(svcErr.KindOf(err)), Message: svcErr.PublicMessage(err)},
	}
}

// Reject reports err to s alone, e.g. for a frame that could not be decoded.
func (h *Hub) Reject(s *Session, clientID string, err error) {
	s.enqueue(errorEvent(clientID, err))
}
