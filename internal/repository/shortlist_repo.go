package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/db"
)

// ShortlistRepository stores one-way bookmarks.
type ShortlistRepository struct {
	db *gorm.DB
}

func NewShortlistRepository(database *gorm.DB) *ShortlistRepository {
	return &ShortlistRepository{db: database}
}

// ShortlistWithUser is a bookmark joined with the bookmarked user's public fields.
type ShortlistWithUser struct {
	db.Shortlist
	TargetName           string
	TargetGender         string
	TargetCity           string
	TargetProfession     string
	TargetProfilePicture string
	TargetIsActive       bool
}

// Create inserts a bookmark; duplicates fail with gorm.ErrDuplicatedKey.
func (r *ShortlistRepository) Create(ctx context.Context, s *db.Shortlist) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Delete removes the bookmark and reports whether one existed.
func (r *ShortlistRepository) Delete(ctx context.Context, userID, targetID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND shortlisted_user_id = ?", userID, targetID).
		Delete(&db.Shortlist{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Get returns gorm.ErrRecordNotFound when userID has not bookmarked targetID.
func (r *ShortlistRepository) Get(ctx context.Context, userID, targetID string) (*db.Shortlist, error) {
	var s db.Shortlist
	err := r.db.WithContext(ctx).
		First(&s, "user_id = ? AND shortlisted_user_id = ?", userID, targetID).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShortlistRepository) Exists(ctx context.Context, userID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Shortlist{}).
		Where("user_id = ? AND shortlisted_user_id = ?", userID, targetID).
		Count(&count).Error
	return count > 0, err
}

// ListByUser returns userID's bookmarks newest first with target details.
func (r *ShortlistRepository) ListByUser(ctx context.Context, userID string) ([]ShortlistWithUser, error) {
	var out []ShortlistWithUser
	err := r.db.WithContext(ctx).
		Table("shortlists s").
		Select(`s.*,
			u.name AS target_name,
			u.gender AS target_gender,
			u.city AS target_city,
			u.profession AS target_profession,
			u.profile_picture AS target_profile_picture,
			u.is_active AS target_is_active`).
		Joins("JOIN users u ON u.id = s.shortlisted_user_id").
		Where("s.user_id = ?", userID).
		Order("s.created_at DESC, s.id DESC").
		Scan(&out).Error
	return out, err
}
