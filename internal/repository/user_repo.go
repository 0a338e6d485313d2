package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/utils/pagination"
)

var (
	// ErrPhotoLimit is returned when a user already stores the maximum number of photos.
	ErrPhotoLimit = errors.New("photo limit reached")
	// ErrPhotoNotFound is returned when removing a reference the user does not own.
	ErrPhotoNotFound = errors.New("photo not found")
)

// UserRepository provides data access for identities and their profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// SearchFilter narrows member search. Empty fields are ignored.
type SearchFilter struct {
	ExcludeID     string
	Gender        string
	MinAge        int
	MaxAge        int
	MaritalStatus string
	Religion      string
	Caste         string
	MotherTongue  string
	City          string
	State         string
	Country       string
	Education     string
	Profession    string
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	AccountStatus string
	Query         string // matches name or email prefix
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// GetByID returns gorm.ErrRecordNotFound when the row does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads several users keyed by id. Missing ids are simply absent.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]db.User, error) {
	out := make(map[string]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// GetByEmail looks up a non-deleted identity by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		First(&u, "email_key = ?", NormalizeEmail(email)).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "verification_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "reset_token = ?", token).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailTaken reports whether another non-deleted identity holds email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return r.keyTaken(ctx, "email_key", NormalizeEmail(email), excludeID)
}

// PhoneTaken reports whether another non-deleted identity holds phone.
func (r *UserRepository) PhoneTaken(ctx context.Context, phone, excludeID string) (bool, error) {
	return r.keyTaken(ctx, "phone_key", NormalizePhone(phone), excludeID)
}

func (r *UserRepository) keyTaken(ctx context.Context, column, value, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&db.User{}).Where(column+" = ?", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Update applies column updates to a single user. Unknown ids yield
// gorm.ErrRecordNotFound.
func (r *UserRepository) Update(ctx context.Context, id string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendPhoto adds ref to the user's photo list inside a transaction,
// refusing once max photos are stored. The first photo becomes the profile picture.
func (r *UserRepository) AppendPhoto(ctx context.Context, userID, ref string, max int) (*db.User, error) {
	var out db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", userID).Error; err != nil {
			return err
		}
		if len(out.Photos) >= max {
			return ErrPhotoLimit
		}
		out.Photos = append(out.Photos, ref)
		if out.ProfilePicture == "" {
			out.ProfilePicture = ref
		}
		return tx.Model(&out).Select("photos", "profile_picture").Updates(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemovePhoto drops ref from the user's photo list. When ref was the profile
// picture the next remaining photo is promoted, or the pointer is cleared.
func (r *UserRepository) RemovePhoto(ctx context.Context, userID, ref string) (*db.User, error) {
	var out db.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", userID).Error; err != nil {
			return err
		}
		idx := -1
		for i, p := range out.Photos {
			if p == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrPhotoNotFound
		}
		remaining := make([]string, 0, len(out.Photos)-1)
		remaining = append(remaining, out.Photos[:idx]...)
		remaining = append(remaining, out.Photos[idx+1:]...)
		out.Photos = remaining

		if out.ProfilePicture == ref {
			out.ProfilePicture = ""
			if len(remaining) > 0 {
				out.ProfilePicture = remaining[0]
			}
		}
		return tx.Model(&out).Select("photos", "profile_picture").Updates(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns visible members (active, verified) newest first.
//
// Behavior:
//   - Age bounds are translated into date-of-birth bounds relative to now.
//   - Keyset pagination on (created_at DESC, id DESC) via an opaque token.
func (r *UserRepository) Search(
	ctx context.Context,
	f SearchFilter,
	paginationToken string,
	limit int,
	now time.Time,
) ([]db.User, *string, error) {
	cursor, err := pagination.Decode(paginationToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.ClampLimit(limit)

	q := r.db.WithContext(ctx).Model(&db.User{}).
		Where("is_active = ? AND is_email_verified = ? AND account_status = ?", true, true, db.AccountActive)

	if f.ExcludeID != "" {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	eq := map[string]string{
		"gender":         f.Gender,
		"marital_status": f.MaritalStatus,
		"religion":       f.Religion,
		"caste":          f.Caste,
		"mother_tongue":  f.MotherTongue,
		"city":           f.City,
		"state":          f.State,
		"country":        f.Country,
		"education":      f.Education,
		"profession":     f.Profession,
	}
	for col, v := range eq {
		if v != "" {
			q = q.Where(col+" = ?", v)
		}
	}
	// born on or before now-minAge years
	if f.MinAge > 0 {
		q = q.Where("date_of_birth <= ?", now.AddDate(-f.MinAge, 0, 0))
	}
	// born after now-(maxAge+1) years
	if f.MaxAge > 0 {
		q = q.Where("date_of_birth > ?", now.AddDate(-(f.MaxAge+1), 0, 0))
	}

	if !cursor.IsZero() {
		ts := cursor.Time()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, cursor.ID)
	}

	var users []db.User
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&users).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(users) > limit {
		last := users[limit-1]
		token, _ := pagination.Encode(pagination.After(last.ID, last.CreatedAt))
		nextToken = &token
		users = users[:limit]
	}
	return users, nextToken, nil
}

// List is the admin listing over every account regardless of visibility.
func (r *UserRepository) List(
	ctx context.Context,
	f ListFilter,
	paginationToken string,
	limit int,
) ([]db.User, *string, error) {
	cursor, err := pagination.Decode(paginationToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.ClampLimit(limit)

	q := r.db.WithContext(ctx).Model(&db.User{})
	if f.AccountStatus != "" {
		q = q.Where("account_status = ?", f.AccountStatus)
	}
	if f.Query != "" {
		like := strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}
	if !cursor.IsZero() {
		ts := cursor.Time()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, cursor.ID)
	}

	var users []db.User
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&users).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(users) > limit {
		last := users[limit-1]
		token, _ := pagination.Encode(pagination.After(last.ID, last.CreatedAt))
		nextToken = &token
		users = users[:limit]
	}
	return users, nextToken, nil
}

// HardDelete removes the identity and every interest, shortlist entry and
// SQL-stored message that references it, in one transaction.
func (r *UserRepository) HardDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&db.Interest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR shortlisted_user_id = ?", id, id).Delete(&db.Shortlist{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&db.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&db.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountByStatus returns the number of accounts per account_status.
func (r *UserRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		AccountStatus string
		Count         int64
	}
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Select("account_status, COUNT(*) AS count").
		Group("account_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.AccountStatus] = row.Count
	}
	return out, nil
}

// NormalizeEmail lowercases and trims an email for key comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

// Keys returns the email/phone unique-key values for an identity that is not deleted.
func Keys(email, phone string) (*string, *string) {
	e, p := NormalizeEmail(email), NormalizePhone(phone)
	return &e, &p
}
