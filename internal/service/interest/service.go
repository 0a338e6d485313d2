package interest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/notify"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/dto"
)

const maxMessageLen = 500

// Service runs the interest workflow: pending -> accepted | rejected, or a
// pending interest withdrawn by its sender.
type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	interests *repository.InterestRepository
	notifier  *notify.Dispatcher
	now       func() time.Time
}

func NewInterestService(appCtx *app.AppContext, notifier *notify.Dispatcher) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SendInterest creates a pending interest from senderID to receiverID.
//
// Behavior:
//   - Self-targeting and messages over 500 characters are Validation errors.
//   - A missing or hidden receiver is NotFound.
//   - A second interest for the same ordered pair is Conflict, whatever the
//     first one's status; the unique index settles concurrent sends.
//   - The receiver's cached pending counter and notification are best-effort.
func (s *Service) SendInterest(ctx context.Context, senderID, receiverID, message string) (*dto.Interest, error) {
	s.appCtx.Logger.Debug("SendInterest called", "sender", senderID, "receiver", receiverID)

	message = strings.TrimSpace(message)
	if senderID == receiverID {
		return nil, svcErr.Validation("cannot send interest to yourself")
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return nil, svcErr.Validation("message must be at most %d characters", maxMessageLen)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !sender.IsActive {
		return nil, svcErr.Unauthorized("account is not active")
	}

	receiver, err := s.users.GetByID(ctx, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !receiver.IsVisible()) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		s.appCtx.Logger.Error("GetByID failed", "user", receiverID, "err", err)
		return nil, svcErr.Map(err)
	}

	if _, err := s.interests.GetByPair(ctx, senderID, receiverID); err == nil {
		return nil, svcErr.Conflict("interest already sent")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Map(err)
	}

	in := &db.Interest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     db.InterestPending,
		Message:    message,
	}
	if err := s.interests.Create(ctx, in); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("interest already sent")
		}
		s.appCtx.Logger.Error("Create interest failed", "err", err)
		return nil, svcErr.Map(err)
	}

	s.adjustPending(ctx, receiverID, 1)
	s.appCtx.Metrics.IncrementInterestsSent()
	s.notifier.Send(notify.Notification{
		Kind:    notify.KindInterestReceived,
		UserID:  receiver.ID,
		Email:   receiver.Email,
		Subject: "New interest from " + sender.Name,
		Body:    message,
		Data:    map[string]string{"interest_id": in.ID, "sender_id": sender.ID},
	})

	out := dto.NewInterest(in)
	return &out, nil
}

// AcceptInterest moves a pending interest to accepted. Only the receiver may call it.
func (s *Service) AcceptInterest(ctx context.Context, interestID, actorID string) (*dto.Interest, error) {
	return s.respond(ctx, interestID, actorID, db.InterestAccepted)
}

// RejectInterest moves a pending interest to rejected. Only the receiver may call it.
func (s *Service) RejectInterest(ctx context.Context, interestID, actorID string) (*dto.Interest, error) {
	return s.respond(ctx, interestID, actorID, db.InterestRejected)
}

// respond performs the single pending -> status transition.
//
// Behavior:
//   - The write is conditional on status = pending, so of two concurrent
//     callers exactly one wins; the other re-reads and reports the state
//     it lost to.
func (s *Service) respond(ctx context.Context, interestID, actorID, status string) (*dto.Interest, error) {
	s.appCtx.Logger.Debug("respond to interest", "interest", interestID, "actor", actorID, "status", status)

	in, err := s.load(ctx, interestID)
	if err != nil {
		return nil, err
	}
	// terminal interests report their state to every caller
	if in.Status != db.InterestPending {
		return nil, svcErr.InvalidState("interest already %s", in.Status)
	}
	if in.ReceiverID != actorID {
		s.appCtx.Logger.Warn("respond by non-receiver", "interest", interestID, "actor", actorID)
		return nil, svcErr.Unauthorized("only the receiver can respond to this interest")
	}

	ok, err := s.interests.TransitionFromPending(ctx, interestID, status)
	if err != nil {
		s.appCtx.Logger.Error("TransitionFromPending failed", "interest", interestID, "err", err)
		return nil, svcErr.Map(err)
	}
	if !ok {
		current, err := s.load(ctx, interestID)
		if err != nil {
			return nil, err
		}
		return nil, svcErr.InvalidState("interest already %s", current.Status)
	}

	s.adjustPending(ctx, in.ReceiverID, -1)
	s.appCtx.Metrics.ObserveInterestDecision(status)

	updated, err := s.load(ctx, interestID)
	if err != nil {
		return nil, err
	}

	if status == db.InterestAccepted {
		s.notifyAccepted(ctx, updated)
	}

	out := dto.NewInterest(updated)
	return &out, nil
}

// CancelInterest withdraws a pending interest and returns the removed record.
func (s *Service) CancelInterest(ctx context.Context, interestID, actorID string) (*dto.Interest, error) {
	s.appCtx.Logger.Debug("CancelInterest called", "interest", interestID, "actor", actorID)

	in, err := s.load(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if in.SenderID != actorID {
		s.appCtx.Logger.Warn("cancel by non-sender", "interest", interestID, "actor", actorID)
		return nil, svcErr.Unauthorized("only the sender can cancel this interest")
	}
	if in.Status != db.InterestPending {
		return nil, svcErr.InvalidState("cannot cancel %s interest", in.Status)
	}

	ok, err := s.interests.DeletePending(ctx, interestID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !ok {
		current, err := s.load(ctx, interestID)
		if err != nil {
			return nil, err
		}
		return nil, svcErr.InvalidState("cannot cancel %s interest", current.Status)
	}

	s.adjustPending(ctx, in.ReceiverID, -1)

	out := dto.NewInterest(in)
	return &out, nil
}

// ListSentInterests returns the actor's outgoing interests, newest first.
// An empty status returns every state.
func (s *Service) ListSentInterests(ctx context.Context, actorID, status string) ([]dto.Interest, error) {
	s.appCtx.Logger.Debug("ListSentInterests called", "actor", actorID, "status", status)
	if err := validStatus(status); err != nil {
		return nil, err
	}
	rows, err := s.interests.ListSent(ctx, actorID, status)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	now := s.now()
	out := make([]dto.Interest, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewInterestWithCounterpart(row, row.ReceiverID, now))
	}
	return out, nil
}

// ListReceivedInterests returns the actor's incoming interests, newest first.
func (s *Service) ListReceivedInterests(ctx context.Context, actorID, status string) ([]dto.Interest, error) {
	s.appCtx.Logger.Debug("ListReceivedInterests called", "actor", actorID, "status", status)
	if err := validStatus(status); err != nil {
		return nil, err
	}
	rows, err := s.interests.ListReceived(ctx, actorID, status)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	now := s.now()
	out := make([]dto.Interest, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewInterestWithCounterpart(row, row.SenderID, now))
	}
	return out, nil
}

// CountPendingReceived returns how many interests wait on the actor.
// Cache-first strategy:
//  1. Attempts to read from Redis (interests:pending:userID).
//  2. On a miss, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountPendingReceived(ctx context.Context, actorID string) (int64, error) {
	s.appCtx.Logger.Debug("CountPendingReceived called", "actor", actorID)

	if n, ok, err := s.appCtx.RedisCache.GetPendingCount(ctx, actorID); err == nil && ok {
		return n, nil
	} else if err != nil {
		s.appCtx.Logger.Warn("pending counter read failed", "actor", actorID, "err", err)
	}

	count, err := s.interests.CountPendingReceived(ctx, actorID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetPendingCount(ctx, actorID, count); err != nil {
		s.appCtx.Logger.Warn("pending counter write failed", "actor", actorID, "err", err)
	}
	return count, nil
}

// GetInterestStatus returns the interests exchanged between the actor and
// other, in either direction.
func (s *Service) GetInterestStatus(ctx context.Context, actorID, otherID string) ([]dto.Interest, error) {
	s.appCtx.Logger.Debug("GetInterestStatus called", "actor", actorID, "other", otherID)
	rows, err := s.interests.Between(ctx, actorID, otherID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]dto.Interest, 0, len(rows))
	for i := range rows {
		out = append(out, dto.NewInterest(&rows[i]))
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, interestID string) (*db.Interest, error) {
	in, err := s.interests.GetByID(ctx, interestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("interest not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	return in, nil
}

func (s *Service) adjustPending(ctx context.Context, receiverID string, delta int64) {
	if err := s.appCtx.RedisCache.AdjustPendingCount(ctx, receiverID, delta); err != nil {
		s.appCtx.Logger.Warn("pending counter update failed", "user", receiverID, "err", err)
	}
}

func (s *Service) notifyAccepted(ctx context.Context, in *db.Interest) {
	sender, err := s.users.GetByID(ctx, in.SenderID)
	if err != nil {
		s.appCtx.Logger.Warn("accept notification skipped", "interest", in.ID, "err", err)
		return
	}
	name := "A member"
	if receiver, err := s.users.GetByID(ctx, in.ReceiverID); err == nil {
		name = receiver.Name
	}
	s.notifier.Send(notify.Notification{
		Kind:    notify.KindInterestAccepted,
		UserID:  sender.ID,
		Email:   sender.Email,
		Subject: name + " accepted your interest",
		Data:    map[string]string{"interest_id": in.ID, "receiver_id": in.ReceiverID},
	})
}

func validStatus(status string) error {
	if status != "" && !slices.Contains(db.InterestStatuses, status) {
		return svcErr.Validation("unknown interest status %q", status)
	}
	return nil
}
