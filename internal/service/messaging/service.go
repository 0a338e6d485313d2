package messaging

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/connection"
	"github.com/oggyb/vivah/internal/service/dto"
)

// MaxContentLen is the longest message body accepted, in characters.
const MaxContentLen = 2000

// Relay pushes persisted messages to live sessions. Delivery is best-effort;
// the return value only reports whether the receiver had a session.
type Relay interface {
	DeliverMessage(receiverID string, m dto.Message) bool
}

type nopRelay struct{}

func (nopRelay) DeliverMessage(string, dto.Message) bool { return false }

// Service persists direct messages between connected members and derives
// conversations from the flat log.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	messages repository.MessageStore
	gate     *connection.Service
	relay    Relay
	now      func() time.Time
}

// NewMessagingService wires the service on top of store. A nil store falls
// back to the relational log.
func NewMessagingService(appCtx *app.AppContext, store repository.MessageStore, gate *connection.Service) *Service {
	if store == nil {
		store = repository.NewMessageRepository(appCtx.DB)
	}
	if gate == nil {
		gate = connection.NewConnectionService(appCtx)
	}
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		messages: store,
		gate:     gate,
		relay:    nopRelay{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetRelay attaches the live relay. The relay is created after the service
// because it calls back into SendMessage.
func (s *Service) SetRelay(r Relay) {
	if r == nil {
		r = nopRelay{}
	}
	s.relay = r
}

// SendMessage persists a message from senderID to receiverID and forwards
// it to the receiver's live session, if any.
//
// Behavior:
//   - Content is trimmed; empty or over 2000 characters is Validation.
//   - A missing or deactivated receiver is NotFound.
//   - The connection gate is checked on every call.
//   - Forwarding happens only after the write succeeded and never fails the call.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, content string) (*dto.Message, error) {
	s.appCtx.Logger.Debug("SendMessage called", "sender", senderID, "receiver", receiverID)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, svcErr.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLen {
		return nil, svcErr.Validation("message must be at most %d characters", MaxContentLen)
	}
	if senderID == receiverID {
		return nil, svcErr.Validation("cannot message yourself")
	}

	parties, err := s.users.GetByIDs(ctx, []string{senderID, receiverID})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	receiver, ok := parties[receiverID]
	if !ok || !receiver.IsActive {
		return nil, svcErr.NotFound("user not found")
	}
	sender, ok := parties[senderID]
	if !ok || !sender.IsActive {
		return nil, svcErr.Unauthorized("account is not active")
	}

	if err := s.gate.Require(ctx, senderID, receiverID); err != nil {
		s.appCtx.Logger.Warn("message blocked by gate", "sender", senderID, "receiver", receiverID)
		return nil, err
	}

	m := &db.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.messages.Create(ctx, m); err != nil {
		s.appCtx.Logger.Error("Create message failed", "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Metrics.IncrementMessagesSent()

	now := s.now()
	out := dto.NewMessage(m)
	senderCard, receiverCard := dto.NewCard(&sender, now), dto.NewCard(&receiver, now)
	out.Sender, out.Receiver = &senderCard, &receiverCard

	if s.relay.DeliverMessage(receiverID, out) {
		s.appCtx.Metrics.IncrementMessagesRelayed()
	}
	return &out, nil
}

// ListConversations returns one row per counterpart the actor has
// exchanged messages with, most recent first. Counterparts whose connection
// is no longer open, or whose account is gone, are left out.
func (s *Service) ListConversations(ctx context.Context, actorID string) ([]dto.Conversation, error) {
	s.appCtx.Logger.Debug("ListConversations called", "actor", actorID)

	if err := s.requireActive(ctx, actorID); err != nil {
		return nil, err
	}
	summaries, err := s.messages.ListConversations(ctx, actorID)
	if err != nil {
		s.appCtx.Logger.Error("ListConversations failed", "actor", actorID, "err", err)
		return nil, svcErr.Map(err)
	}
	if len(summaries) == 0 {
		return []dto.Conversation{}, nil
	}

	connected, err := s.gate.Connections(ctx, actorID)
	if err != nil {
		return nil, err
	}
	open := make(map[string]bool, len(connected))
	for _, id := range connected {
		open[id] = true
	}

	ids := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		if open[sum.CounterpartID] {
			ids = append(ids, sum.CounterpartID)
		}
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := s.now()
	out := make([]dto.Conversation, 0, len(ids))
	for _, sum := range summaries {
		u, ok := users[sum.CounterpartID]
		if !open[sum.CounterpartID] || !ok {
			continue
		}
		out = append(out, dto.Conversation{
			Counterpart:   dto.NewCard(&u, now),
			LastMessage:   sum.LastMessage,
			LastSenderID:  sum.LastSenderID,
			LastMessageAt: sum.LastMessageAt,
			UnreadCount:   sum.UnreadCount,
		})
	}
	return out, nil
}

// ListThread returns the messages between the actor and counterpartID in
// chronological order, and marks the ones the actor received as read. Only
// messages in the returned slice are marked; anything stored after the read
// stays unread.
func (s *Service) ListThread(ctx context.Context, actorID, counterpartID string) ([]dto.Message, error) {
	s.appCtx.Logger.Debug("ListThread called", "actor", actorID, "counterpart", counterpartID)

	if err := s.requireActive(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.gate.Require(ctx, actorID, counterpartID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListThread(ctx, actorID, counterpartID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var unread []string
	for _, m := range msgs {
		if m.ReceiverID == actorID && !m.IsRead {
			unread = append(unread, m.ID)
		}
	}

	now := s.now()
	if len(unread) > 0 {
		if _, err := s.messages.MarkThreadRead(ctx, actorID, unread, now); err != nil {
			s.appCtx.Logger.Error("MarkThreadRead failed", "actor", actorID, "err", err)
			return nil, svcErr.Map(err)
		}
	}

	out := make([]dto.Message, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if m.ReceiverID == actorID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &now
		}
		out = append(out, dto.NewMessage(m))
	}
	return out, nil
}

// MarkMessageRead flags a single message as read. Only its receiver may do
// so; repeating the call changes nothing.
func (s *Service) MarkMessageRead(ctx context.Context, messageID, actorID string) (*dto.Message, error) {
	s.appCtx.Logger.Debug("MarkMessageRead called", "message", messageID, "actor", actorID)

	if err := s.requireActive(ctx, actorID); err != nil {
		return nil, err
	}
	m, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if mapped := svcErr.Map(err); svcErr.IsKind(mapped, svcErr.KindNotFound) {
			return nil, svcErr.NotFound("message not found")
		}
		return nil, svcErr.Map(err)
	}
	if m.ReceiverID != actorID {
		return nil, svcErr.Unauthorized("only the receiver can mark a message read")
	}

	if !m.IsRead {
		now := s.now()
		if _, err := s.messages.MarkRead(ctx, messageID, now); err != nil {
			return nil, svcErr.Map(err)
		}
		m.IsRead, m.ReadAt = true, &now
	}

	out := dto.NewMessage(m)
	return &out, nil
}

// UnreadCount returns how many messages wait unread for the actor.
func (s *Service) UnreadCount(ctx context.Context, actorID string) (int64, error) {
	n, err := s.messages.CountUnread(ctx, actorID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	return n, nil
}

// requireActive rejects actors whose account was deactivated or removed
// while their token is still valid.
func (s *Service) requireActive(ctx context.Context, actorID string) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if svcErr.IsKind(svcErr.Map(err), svcErr.KindNotFound) {
			return svcErr.Unauthorized("account is not active")
		}
		return svcErr.Map(err)
	}
	if !actor.IsActive {
		return svcErr.Unauthorized("account is not active")
	}
	return nil
}

// CanMessage exposes the gate to the relay for typing indicators.
func (s *Service) CanMessage(ctx context.Context, a, b string) (bool, error) {
	return s.gate.CanMessage(ctx, a, b)
}
