package shortlist

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/dto"
)

// Service manages one-way bookmarks. Shortlisting is not gated by any
// interest state.
type Service struct {
	appCtx     *app.AppContext
	users      *repository.UserRepository
	shortlists *repository.ShortlistRepository
}

func NewShortlistService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		users:      repository.NewUserRepository(appCtx.DB),
		shortlists: repository.NewShortlistRepository(appCtx.DB),
	}
}

// AddShortlist bookmarks targetID for userID.
func (s *Service) AddShortlist(ctx context.Context, userID, targetID string) (*dto.Shortlist, error) {
	s.appCtx.Logger.Debug("AddShortlist called", "user", userID, "target", targetID)

	if userID == targetID {
		return nil, svcErr.Validation("cannot shortlist yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !target.IsVisible()) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	entry := &db.Shortlist{UserID: userID, ShortlistedUserID: targetID}
	if err := s.shortlists.Create(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("already shortlisted")
		}
		s.appCtx.Logger.Error("Create shortlist failed", "err", err)
		return nil, svcErr.Map(err)
	}

	return &dto.Shortlist{ID: entry.ID, CreatedAt: entry.CreatedAt, Profile: card(target)}, nil
}

// RemoveShortlist deletes the bookmark and returns the removed entry. A
// missing entry is reported as NotFound "not in shortlist".
func (s *Service) RemoveShortlist(ctx context.Context, userID, targetID string) (*dto.Shortlist, error) {
	s.appCtx.Logger.Debug("RemoveShortlist called", "user", userID, "target", targetID)

	entry, err := s.shortlists.Get(ctx, userID, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("not in shortlist")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	ok, err := s.shortlists.Delete(ctx, userID, targetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !ok {
		return nil, svcErr.NotFound("not in shortlist")
	}

	out := &dto.Shortlist{ID: entry.ID, CreatedAt: entry.CreatedAt, Profile: dto.Card{ID: targetID}}
	if target, err := s.users.GetByID(ctx, targetID); err == nil {
		out.Profile = card(target)
	}
	return out, nil
}

// ListShortlist returns userID's bookmarks newest first. Entries whose target
// has since gone inactive are left out.
func (s *Service) ListShortlist(ctx context.Context, userID string) ([]dto.Shortlist, error) {
	s.appCtx.Logger.Debug("ListShortlist called", "user", userID)

	rows, err := s.shortlists.ListByUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]dto.Shortlist, 0, len(rows))
	for _, row := range rows {
		if !row.TargetIsActive {
			continue
		}
		out = append(out, dto.NewShortlist(row))
	}
	return out, nil
}

func (s *Service) IsShortlisted(ctx context.Context, userID, targetID string) (bool, error) {
	ok, err := s.shortlists.Exists(ctx, userID, targetID)
	if err != nil {
		return false, svcErr.Map(err)
	}
	return ok, nil
}

// card leaves Age out so every shortlist row has the same shape as the
// joined listing.
func card(u *db.User) dto.Card {
	return dto.Card{
		ID:             u.ID,
		Name:           u.Name,
		Gender:         u.Gender,
		City:           u.City,
		Profession:     u.Profession,
		ProfilePicture: u.ProfilePicture,
	}
}
