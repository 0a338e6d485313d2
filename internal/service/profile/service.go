package profile

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/dto"
	"github.com/oggyb/vivah/internal/storage"
	"github.com/oggyb/vivah/internal/utils/pagination"
	"github.com/oggyb/vivah/internal/validation"
)

// MaxPhotos is the number of photo references a profile may hold.
const MaxPhotos = 5

// MinAge is the youngest age accepted for a profile's date of birth.
const MinAge = 18

// Patch is a partial profile edit. Nil fields are left untouched; only the
// fields listed here can ever be written through it.
type Patch struct {
	Name           *string `json:"name" validate:"omitempty,min=2,max=100"`
	DateOfBirth    *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	MaritalStatus  *string `json:"maritalStatus" validate:"omitempty,marital"`
	Height         *string `json:"height" validate:"omitempty,max=16"`
	City           *string `json:"city" validate:"omitempty,max=100"`
	State          *string `json:"state" validate:"omitempty,max=100"`
	Country        *string `json:"country" validate:"omitempty,max=100"`
	Religion       *string `json:"religion" validate:"omitempty,max=64"`
	Caste          *string `json:"caste" validate:"omitempty,max=64"`
	SubCaste       *string `json:"subCaste" validate:"omitempty,max=64"`
	MotherTongue   *string `json:"motherTongue" validate:"omitempty,max=64"`
	Education      *string `json:"education" validate:"omitempty,education"`
	Profession     *string `json:"profession" validate:"omitempty,profession"`
	AnnualIncome   *string `json:"annualIncome" validate:"omitempty,income"`
	Complexion     *string `json:"complexion" validate:"omitempty,complexion"`
	FoodHabits     *string `json:"foodHabits" validate:"omitempty,foodhabits"`
	Bio            *string `json:"bio" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture"`
}

// SearchInput holds member search filters. Gender defaults to the opposite
// of the viewer's.
type SearchInput struct {
	Gender        string `json:"gender" validate:"omitempty,gender"`
	MinAge        int    `json:"minAge" validate:"omitempty,min=18,max=100"`
	MaxAge        int    `json:"maxAge" validate:"omitempty,min=18,max=100,gtefield=MinAge"`
	MaritalStatus string `json:"maritalStatus" validate:"omitempty,marital"`
	Religion      string `json:"religion"`
	Caste         string `json:"caste"`
	MotherTongue  string `json:"motherTongue"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	Education     string `json:"education" validate:"omitempty,education"`
	Profession    string `json:"profession" validate:"omitempty,profession"`
	Cursor        string `json:"cursor"`
	Limit         int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type SearchResult struct {
	Profiles   []dto.Card `json:"profiles"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// Service serves the identity's own profile, other members' public views,
// photo management and search.
type Service struct {
	appCtx     *app.AppContext
	users      *repository.UserRepository
	shortlists *repository.ShortlistRepository
	photos     storage.PhotoStorage
	now        func() time.Time
}

func NewProfileService(appCtx *app.AppContext, photos storage.PhotoStorage) *Service {
	if photos == nil {
		photos = storage.Disabled{}
	}
	return &Service{
		appCtx:     appCtx,
		users:      repository.NewUserRepository(appCtx.DB),
		shortlists: repository.NewShortlistRepository(appCtx.DB),
		photos:     photos,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetOwnProfile(ctx context.Context, actorID string) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("GetOwnProfile called", "actor", actorID)

	u, err := s.loadSelf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := dto.NewSelfProfile(u, s.now())
	return &out, nil
}

// UpdateOwnProfile applies the non-nil fields of p and returns the updated view.
//
// Behavior:
//   - profilePicture must name one of the photos already stored on the profile.
//   - dateOfBirth must make the member at least 18 years old.
func (s *Service) UpdateOwnProfile(ctx context.Context, actorID string, p Patch) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("UpdateOwnProfile called", "actor", actorID)

	if err := validation.Struct(p); err != nil {
		return nil, err
	}
	u, err := s.loadSelf(ctx, actorID)
	if err != nil {
		return nil, err
	}

	updates, err := p.Columns(u, s.now())
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.users.Update(ctx, actorID, updates); err != nil {
			s.appCtx.Logger.Error("Update profile failed", "actor", actorID, "err", err)
			return nil, svcErr.Map(err)
		}
	}
	return s.GetOwnProfile(ctx, actorID)
}

// Columns turns the patch into column updates for u.
func (p Patch) Columns(u *db.User, now time.Time) (map[string]any, error) {
	updates := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	set("name", p.Name)
	set("marital_status", p.MaritalStatus)
	set("height", p.Height)
	set("city", p.City)
	set("state", p.State)
	set("country", p.Country)
	set("religion", p.Religion)
	set("caste", p.Caste)
	set("sub_caste", p.SubCaste)
	set("mother_tongue", p.MotherTongue)
	set("education", p.Education)
	set("profession", p.Profession)
	set("annual_income", p.AnnualIncome)
	set("complexion", p.Complexion)
	set("food_habits", p.FoodHabits)
	set("bio", p.Bio)

	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, svcErr.Validation("name: is required")
	}
	if p.DateOfBirth != nil {
		dob, err := ParseDateOfBirth(*p.DateOfBirth, now)
		if err != nil {
			return nil, err
		}
		updates["date_of_birth"] = dob
	}
	if p.ProfilePicture != nil {
		ref := strings.TrimSpace(*p.ProfilePicture)
		if ref != "" && !slices.Contains(u.Photos, ref) {
			return nil, svcErr.Validation("profilePicture must be one of your photos")
		}
		updates["profile_picture"] = ref
	}
	return updates, nil
}

// ParseDateOfBirth parses YYYY-MM-DD and enforces the minimum age.
func ParseDateOfBirth(v string, now time.Time) (time.Time, error) {
	dob, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(v), time.UTC)
	if err != nil {
		return time.Time{}, svcErr.Validation("dateOfBirth: must be YYYY-MM-DD")
	}
	if dto.Age(dob, now) < MinAge {
		return time.Time{}, svcErr.Validation("dateOfBirth: must be at least %d years old", MinAge)
	}
	return dob, nil
}

// GetPublicProfile returns targetID as viewerID sees it. Hidden members
// (inactive, deleted or unverified) are NotFound.
func (s *Service) GetPublicProfile(ctx context.Context, viewerID, targetID string) (*dto.PublicProfile, error) {
	s.appCtx.Logger.Debug("GetPublicProfile called", "viewer", viewerID, "target", targetID)

	u, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !u.IsVisible()) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		s.appCtx.Logger.Error("GetByID failed", "user", targetID, "err", err)
		return nil, svcErr.Map(err)
	}

	out := dto.NewPublicProfile(u, s.now())
	if viewerID != "" && viewerID != targetID {
		ok, err := s.shortlists.Exists(ctx, viewerID, targetID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		out.IsShortlisted = ok
	}
	s.fillPresence(ctx, &out)
	return &out, nil
}

// fillPresence sets the online flag, or the last disconnect time for an
// offline member. Redis failures leave the profile without presence.
func (s *Service) fillPresence(ctx context.Context, out *dto.PublicProfile) {
	online, err := s.appCtx.RedisCache.IsOnline(ctx, out.ID)
	if err != nil {
		s.appCtx.Logger.Warn("presence lookup failed", "user", out.ID, "err", err)
		return
	}
	out.Online = online
	if online {
		return
	}
	seen, err := s.appCtx.RedisCache.LastSeen(ctx, out.ID)
	if err != nil {
		s.appCtx.Logger.Warn("last seen lookup failed", "user", out.ID, "err", err)
		return
	}
	if !seen.IsZero() {
		out.LastSeenAt = &seen
	}
}

// AddPhoto uploads data and appends its reference to the actor's photos.
//
// Behavior:
//   - The cap is checked before the upload and again inside the write, so
//     concurrent uploads cannot push a profile past MaxPhotos.
//   - When the write fails the uploaded binary is deleted again.
//   - The first photo becomes the profile picture.
func (s *Service) AddPhoto(ctx context.Context, actorID, filename string, data []byte) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("AddPhoto called", "actor", actorID, "filename", filename, "size", len(data))

	u, err := s.loadSelf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(u.Photos) >= MaxPhotos {
		return nil, svcErr.Validation("maximum %d photos", MaxPhotos)
	}
	if _, _, err := storage.DetectImage(data); err != nil {
		return nil, err
	}

	ref, err := s.photos.Upload(ctx, actorID, filename, data)
	if err != nil {
		s.appCtx.Logger.Error("photo upload failed", "actor", actorID, "err", err)
		return nil, svcErr.Map(err)
	}

	updated, err := s.users.AppendPhoto(ctx, actorID, ref, MaxPhotos)
	if err != nil {
		if delErr := s.photos.Delete(ctx, ref); delErr != nil {
			s.appCtx.Logger.Warn("orphaned photo cleanup failed", "ref", ref, "err", delErr)
		}
		if errors.Is(err, repository.ErrPhotoLimit) {
			return nil, svcErr.Validation("maximum %d photos", MaxPhotos)
		}
		return nil, svcErr.Map(err)
	}

	out := dto.NewSelfProfile(updated, s.now())
	return &out, nil
}

// RemovePhoto drops ref from the actor's photos and deletes the binary
// best-effort.
func (s *Service) RemovePhoto(ctx context.Context, actorID, ref string) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("RemovePhoto called", "actor", actorID, "ref", ref)

	updated, err := s.users.RemovePhoto(ctx, actorID, ref)
	if errors.Is(err, repository.ErrPhotoNotFound) {
		return nil, svcErr.NotFound("photo not found")
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}

	if err := s.photos.Delete(ctx, ref); err != nil {
		s.appCtx.Logger.Warn("photo delete failed", "ref", ref, "err", err)
	}

	out := dto.NewSelfProfile(updated, s.now())
	return &out, nil
}

// Search lists visible members matching in, newest first.
func (s *Service) Search(ctx context.Context, viewerID string, in SearchInput) (*SearchResult, error) {
	s.appCtx.Logger.Debug("Search called", "viewer", viewerID, "cursor", in.Cursor)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	viewer, err := s.loadSelf(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	gender := in.Gender
	if gender == "" {
		gender = db.OppositeGender(viewer.Gender)
	}

	now := s.now()
	users, next, err := s.users.Search(ctx, repository.SearchFilter{
		ExcludeID:     viewerID,
		Gender:        gender,
		MinAge:        in.MinAge,
		MaxAge:        in.MaxAge,
		MaritalStatus: in.MaritalStatus,
		Religion:      in.Religion,
		Caste:         in.Caste,
		MotherTongue:  in.MotherTongue,
		City:          in.City,
		State:         in.State,
		Country:       in.Country,
		Education:     in.Education,
		Profession:    in.Profession,
	}, in.Cursor, in.Limit, now)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, svcErr.Validation("invalid pagination token")
		}
		s.appCtx.Logger.Error("Search failed", "err", err)
		return nil, svcErr.Map(err)
	}

	out := &SearchResult{Profiles: make([]dto.Card, 0, len(users)), NextCursor: next}
	for i := range users {
		out.Profiles = append(out.Profiles, dto.NewCard(&users[i], now))
	}

	s.appCtx.Logger.Debug("Search result", "count", len(out.Profiles), "has_next", next != nil)
	return out, nil
}

func (s *Service) loadSelf(ctx context.Context, actorID string) (*db.User, error) {
	u, err := s.users.GetByID(ctx, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("user not found")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	return u, nil
}
