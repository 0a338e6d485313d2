package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/db"
)

// InterestRepository provides data access for the Interest model.
// Pair uniqueness is enforced by the uq_interest_pair index; every state
// change is a conditional write on status = pending.
type InterestRepository struct {
	db *gorm.DB
}

func NewInterestRepository(database *gorm.DB) *InterestRepository {
	return &InterestRepository{db: database}
}

// InterestWithUser is an interest joined with the counterpart's public fields.
type InterestWithUser struct {
	db.Interest
	CounterpartName           string
	CounterpartGender         string
	CounterpartDateOfBirth    *time.Time
	CounterpartCity           string
	CounterpartProfession     string
	CounterpartProfilePicture string
}

// Create inserts a new interest. A second record for the same ordered pair
// fails with gorm.ErrDuplicatedKey.
func (r *InterestRepository) Create(ctx context.Context, in *db.Interest) error {
	return r.db.WithContext(ctx).Create(in).Error
}

func (r *InterestRepository) GetByID(ctx context.Context, id string) (*db.Interest, error) {
	var in db.Interest
	if err := r.db.WithContext(ctx).First(&in, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

// GetByPair returns the interest sent by senderID to receiverID.
func (r *InterestRepository) GetByPair(ctx context.Context, senderID, receiverID string) (*db.Interest, error) {
	var in db.Interest
	err := r.db.WithContext(ctx).
		First(&in, "sender_id = ? AND receiver_id = ?", senderID, receiverID).Error
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Between returns the interests exchanged by a and b in either direction.
func (r *InterestRepository) Between(ctx context.Context, a, b string) ([]db.Interest, error) {
	var out []db.Interest
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// TransitionFromPending moves a pending interest to status.
//
// Behavior:
//   - UPDATE ... WHERE id = ? AND status = 'pending'.
//   - Returns false when no row matched: the interest is gone or was
//     already decided by a concurrent caller.
//
// Example:
//
//	ok, err := repo.TransitionFromPending(ctx, id, db.InterestAccepted)
func (r *InterestRepository) TransitionFromPending(ctx context.Context, id, status string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Interest{}).
		Where("id = ? AND status = ?", id, db.InterestPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeletePending removes the interest only while it is still pending.
func (r *InterestRepository) DeletePending(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, db.InterestPending).
		Delete(&db.Interest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListSent returns interests sent by userID joined with each receiver.
// An empty status lists every state. Newest first.
func (r *InterestRepository) ListSent(ctx context.Context, userID, status string) ([]InterestWithUser, error) {
	return r.list(ctx, "sender_id", "receiver_id", userID, status)
}

// ListReceived returns interests received by userID joined with each sender.
func (r *InterestRepository) ListReceived(ctx context.Context, userID, status string) ([]InterestWithUser, error) {
	return r.list(ctx, "receiver_id", "sender_id", userID, status)
}

func (r *InterestRepository) list(ctx context.Context, ownCol, otherCol, userID, status string) ([]InterestWithUser, error) {
	q := r.db.WithContext(ctx).
		Table("interests i").
		Select(`i.*,
			u.name AS counterpart_name,
			u.gender AS counterpart_gender,
			u.date_of_birth AS counterpart_date_of_birth,
			u.city AS counterpart_city,
			u.profession AS counterpart_profession,
			u.profile_picture AS counterpart_profile_picture`).
		Joins("LEFT JOIN users u ON u.id = i."+otherCol).
		Where("i."+ownCol+" = ?", userID)
	if status != "" {
		q = q.Where("i.status = ?", status)
	}

	var out []InterestWithUser
	err := q.Order("i.created_at DESC, i.id DESC").Scan(&out).Error
	return out, err
}

// CountPendingReceived counts pending interests waiting on receiverID.
// Used as the fallback for the Redis counter.
func (r *InterestRepository) CountPendingReceived(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interest{}).
		Where("receiver_id = ? AND status = ?", receiverID, db.InterestPending).
		Count(&count).Error
	return count, err
}

// ExistsAccepted reports whether an accepted interest links a and b in
// either direction.
func (r *InterestRepository) ExistsAccepted(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interest{}).
		Where("status = ?", db.InterestAccepted).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// AcceptedCounterparts returns the ids of every user linked to userID by an
// accepted interest.
func (r *InterestRepository) AcceptedCounterparts(ctx context.Context, userID string) ([]string, error) {
	var rows []db.Interest
	err := r.db.WithContext(ctx).
		Select("sender_id", "receiver_id").
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", db.InterestAccepted, userID, userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, in := range rows {
		other := in.SenderID
		if other == userID {
			other = in.ReceiverID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out, nil
}

// CountByStatus returns interest totals per status.
func (r *InterestRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Interest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
