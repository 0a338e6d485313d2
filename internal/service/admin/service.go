// Package admin is the back-office surface: account listing, edits,
// activation, soft and hard deletion, and platform totals.
package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/dto"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/storage"
	"github.com/oggyb/vivah/internal/utils/pagination"
	"github.com/oggyb/vivah/internal/validation"
)

type ListInput struct {
	Status string `json:"status" validate:"omitempty,oneof=active inactive deleted"`
	Query  string `json:"q" validate:"max=100"`
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type UserPage struct {
	Users      []dto.SelfProfile `json:"users"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

// UserPatch extends the self-service patch with the identity fields only an
// administrator may change.
type UserPatch struct {
	profile.Patch
	Email  *string `json:"email" validate:"omitempty,email,max=255"`
	Phone  *string `json:"phone" validate:"omitempty,phone"`
	Gender *string `json:"gender" validate:"omitempty,gender"`
}

type Stats struct {
	UsersByStatus     map[string]int64 `json:"usersByStatus"`
	InterestsByStatus map[string]int64 `json:"interestsByStatus"`
	Messages          int64            `json:"messages"`
}

type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	interests *repository.InterestRepository
	messages  repository.MessageStore
	photos    storage.PhotoStorage
	now       func() time.Time
}

func NewAdminService(appCtx *app.AppContext, messages repository.MessageStore, photos storage.PhotoStorage) *Service {
	if messages == nil {
		messages = repository.NewMessageRepository(appCtx.DB)
	}
	if photos == nil {
		photos = storage.Disabled{}
	}
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
		messages:  messages,
		photos:    photos,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers pages through every account, newest first.
func (s *Service) ListUsers(ctx context.Context, in ListInput) (*UserPage, error) {
	s.appCtx.Logger.Debug("ListUsers called", "status", in.Status, "q", in.Query)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	users, next, err := s.users.List(ctx, repository.ListFilter{
		AccountStatus: in.Status,
		Query:         strings.TrimSpace(in.Query),
	}, in.Cursor, in.Limit)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, svcErr.Validation("invalid pagination token")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	now := s.now()
	page := &UserPage{Users: make([]dto.SelfProfile, 0, len(users)), NextCursor: next}
	for i := range users {
		page.Users = append(page.Users, dto.NewSelfProfile(&users[i], now))
	}
	return page, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*dto.SelfProfile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out := dto.NewSelfProfile(u, s.now())
	return &out, nil
}

// UpdateUser applies p to any account. Email and phone stay unique among
// accounts that are not deleted.
func (s *Service) UpdateUser(ctx context.Context, id string, p UserPatch) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("UpdateUser called", "user", id)

	if err := validation.Struct(p); err != nil {
		return nil, err
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	updates, err := p.Columns(u, s.now())
	if err != nil {
		return nil, err
	}

	live := u.AccountStatus != db.AccountDeleted
	if p.Email != nil {
		email := repository.NormalizeEmail(*p.Email)
		if taken, err := s.users.EmailTaken(ctx, email, id); err != nil {
			return nil, svcErr.Map(err)
		} else if taken {
			return nil, svcErr.Conflict("email already registered")
		}
		updates["email"] = email
		if live {
			updates["email_key"] = email
		}
	}
	if p.Phone != nil {
		phone := repository.NormalizePhone(*p.Phone)
		if taken, err := s.users.PhoneTaken(ctx, phone, id); err != nil {
			return nil, svcErr.Map(err)
		} else if taken {
			return nil, svcErr.Conflict("phone already registered")
		}
		updates["phone"] = phone
		if live {
			updates["phone_key"] = phone
		}
	}
	if p.Gender != nil {
		updates["gender"] = *p.Gender
	}

	if len(updates) > 0 {
		if err := s.users.Update(ctx, id, updates); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, svcErr.Conflict("email or phone already registered")
			}
			return nil, svcErr.Map(err)
		}
	}
	return s.GetUser(ctx, id)
}

// SetAccountStatus switches an account between active and inactive.
// Deleted accounts stay deleted.
func (s *Service) SetAccountStatus(ctx context.Context, id, status string) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("SetAccountStatus called", "user", id, "status", status)

	if status != db.AccountActive && status != db.AccountInactive {
		return nil, svcErr.Validation("status must be active or inactive")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.AccountStatus == db.AccountDeleted {
		return nil, svcErr.InvalidState("account is deleted")
	}
	if err := s.users.Update(ctx, id, map[string]any{
		"account_status": status,
		"is_active":      status == db.AccountActive,
	}); err != nil {
		return nil, svcErr.Map(err)
	}
	return s.GetUser(ctx, id)
}

// SoftDeleteUser hides the account, clears its tokens and frees its email
// and phone for new registrations. Interests, shortlists and messages stay.
func (s *Service) SoftDeleteUser(ctx context.Context, id string) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("SoftDeleteUser called", "user", id)

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, id, map[string]any{
		"is_active":               false,
		"account_status":          db.AccountDeleted,
		"email_key":               nil,
		"phone_key":               nil,
		"verification_token":      nil,
		"verification_expires_at": nil,
		"reset_token":             nil,
		"reset_expires_at":        nil,
	}); err != nil {
		return nil, svcErr.Map(err)
	}
	return s.GetUser(ctx, id)
}

// HardDeleteUser removes the account together with its interests, shortlist
// entries (both directions) and messages.
//
// Behavior:
//   - Relational rows go in one transaction.
//   - Messages in an external store, photo binaries and cached pending
//     counters of affected receivers are cleaned up afterwards, best-effort.
func (s *Service) HardDeleteUser(ctx context.Context, id string) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("HardDeleteUser called", "user", id)

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.interests.ListSent(ctx, id, db.InterestPending)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if err := s.users.HardDelete(ctx, id); err != nil {
		s.appCtx.Logger.Error("HardDelete failed", "user", id, "err", err)
		return nil, svcErr.Map(err)
	}

	if _, err := s.messages.DeleteForUser(ctx, id); err != nil {
		s.appCtx.Logger.Warn("message cleanup failed", "user", id, "err", err)
	}
	for _, ref := range u.Photos {
		if err := s.photos.Delete(ctx, ref); err != nil {
			s.appCtx.Logger.Warn("photo cleanup failed", "ref", ref, "err", err)
		}
	}
	for _, in := range pending {
		if err := s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForPendingCount(in.ReceiverID)); err != nil {
			s.appCtx.Logger.Warn("pending counter reset failed", "user", in.ReceiverID, "err", err)
		}
	}

	out := dto.NewSelfProfile(u, s.now())
	return &out, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.users.CountByStatus(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	interests, err := s.interests.CountByStatus(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	messages, err := s.messages.Count(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &Stats{UsersByStatus: users, InterestsByStatus: interests, Messages: messages}, nil
}

func (s *Service) load(ctx context.Context, id string) (*db.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	return u, nil
}
