package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/db"
)

// MessageStore is the persisted direct-message log. The SQL and Mongo
// repositories both satisfy it.
type MessageStore interface {
	Create(ctx context.Context, m *db.Message) error
	GetByID(ctx context.Context, id string) (*db.Message, error)
	ListThread(ctx context.Context, a, b string) ([]db.Message, error)
	MarkThreadRead(ctx context.Context, readerID string, ids []string, at time.Time) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	DeleteForUser(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ConversationSummary is one row of a user's inbox, derived by grouping the
// log on the counterpart id.
type ConversationSummary struct {
	CounterpartID string    `bson:"_id"`
	LastMessage   string    `bson:"last_message"`
	LastSenderID  string    `bson:"last_sender_id"`
	LastMessageAt time.Time `bson:"last_message_at"`
	UnreadCount   int64     `bson:"unread_count"`
}

// MessageRepository is the relational MessageStore.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

var _ MessageStore = (*MessageRepository)(nil)

func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListThread returns every message between a and b, oldest first.
func (r *MessageRepository) ListThread(ctx context.Context, a, b string) ([]db.Message, error) {
	var out []db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkThreadRead flags the listed messages that readerID received and has
// not read yet. Ids addressed to someone else are ignored; re-running it is
// a no-op.
func (r *MessageRepository) MarkThreadRead(ctx context.Context, readerID string, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id IN ? AND receiver_id = ? AND is_read = ?", ids, readerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

// MarkRead flags a single message; false when it was already read.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected > 0, res.Error
}

// ListConversations groups userID's messages by counterpart.
//
// Behavior:
//   - Streams the user's messages newest first; the first row seen per
//     counterpart is the conversation's last message.
//   - Unread counts only messages where userID is the receiver.
//   - Result is ordered by last message time, most recent first.
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCounterpart := make(map[string]*ConversationSummary)
	for rows.Next() {
		var m db.Message
		if err := r.db.ScanRows(rows, &m); err != nil {
			return nil, err
		}
		other := m.CounterpartOf(userID)
		conv, ok := byCounterpart[other]
		if !ok {
			conv = &ConversationSummary{
				CounterpartID: other,
				LastMessage:   m.Content,
				LastSenderID:  m.SenderID,
				LastMessageAt: m.CreatedAt,
			}
			byCounterpart[other] = conv
		}
		if m.ReceiverID == userID && !m.IsRead {
			conv.UnreadCount++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(byCounterpart))
	for _, c := range byCounterpart {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// DeleteForUser removes every message sent or received by userID.
func (r *MessageRepository) DeleteForUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Delete(&db.Message{})
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Message{}).Count(&count).Error
	return count, err
}
