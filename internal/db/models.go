package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewID returns a time-ordered identifier so ties on created_at still sort
// in insertion order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// User is the identity + matrimonial profile record.
//
// EmailKey / PhoneKey mirror Email / Phone while the account is not deleted
// and are NULL afterwards. The unique indexes live on the key columns, so a
// soft-deleted identity frees its email and phone for reuse.
type User struct {
	ID       string  `gorm:"primaryKey;size:36"`
	Email    string  `gorm:"size:255;not null;index"`
	EmailKey *string `gorm:"size:255;uniqueIndex"`
	Phone    string  `gorm:"size:32;not null;index"`
	PhoneKey *string `gorm:"size:32;uniqueIndex"`

	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null"`

	Name          string    `gorm:"size:100;not null"`
	Gender        string    `gorm:"size:16;not null;index:idx_users_search,priority:3"`
	DateOfBirth   time.Time `gorm:"not null"`
	MaritalStatus string    `gorm:"size:32;not null"`
	Height        string    `gorm:"size:16"`
	City          string    `gorm:"size:100;index"`
	State         string    `gorm:"size:100"`
	Country       string    `gorm:"size:100"`

	Religion     string `gorm:"size:64;index"`
	Caste        string `gorm:"size:64"`
	SubCaste     string `gorm:"size:64"`
	MotherTongue string `gorm:"size:64"`
	Education    string `gorm:"size:64"`
	Profession   string `gorm:"size:64"`
	AnnualIncome string `gorm:"size:64"`
	Complexion   string `gorm:"size:32"`
	FoodHabits   string `gorm:"size:32"`
	Bio          string `gorm:"size:500"`

	ProfilePicture string   `gorm:"size:512"`
	Photos         []string `gorm:"serializer:json;type:text"`

	IsEmailVerified       bool    `gorm:"not null;index:idx_users_search,priority:2"`
	VerificationToken     *string `gorm:"size:64;index"`
	VerificationExpiresAt *time.Time
	ResetToken            *string `gorm:"size:64;index"`
	ResetExpiresAt        *time.Time

	IsActive      bool   `gorm:"not null;index:idx_users_search,priority:1"`
	AccountStatus string `gorm:"size:16;not null;index"`
	LastLoginAt   *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// IsVisible reports whether other members may see and target this user.
func (u *User) IsVisible() bool {
	return u.IsActive && u.IsEmailVerified && u.AccountStatus == AccountActive
}

// Interest is a directed request from SenderID to ReceiverID.
//
// Indexes:
//   - uq_interest_pair(sender_id, receiver_id): one record per ordered pair,
//     the authoritative guard against concurrent duplicate sends.
//   - idx_interest_receiver_status / idx_interest_sender_status: inbox and
//     outbox listings filtered by status.
type Interest struct {
	ID         string    `gorm:"primaryKey;size:36"`
	SenderID   string    `gorm:"size:36;not null;uniqueIndex:uq_interest_pair,priority:1;index:idx_interest_sender_status,priority:1"`
	ReceiverID string    `gorm:"size:36;not null;uniqueIndex:uq_interest_pair,priority:2;index:idx_interest_receiver_status,priority:1"`
	Status     string    `gorm:"size:16;not null;index:idx_interest_sender_status,priority:2;index:idx_interest_receiver_status,priority:2"`
	Message    string    `gorm:"size:500"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (i *Interest) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

// Shortlist is a one-way bookmark. (user_id, shortlisted_user_id) is unique.
type Shortlist struct {
	ID                string    `gorm:"primaryKey;size:36"`
	UserID            string    `gorm:"size:36;not null;uniqueIndex:uq_shortlist_pair,priority:1"`
	ShortlistedUserID string    `gorm:"size:36;not null;uniqueIndex:uq_shortlist_pair,priority:2;index"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (s *Shortlist) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}

// Message is one entry of the flat direct-message log. Conversations are
// derived by grouping on the counterpart id; there is no conversation table.
// The bson tags let the Mongo message store reuse the same type.
type Message struct {
	ID         string     `gorm:"primaryKey;size:36" bson:"_id"`
	SenderID   string     `gorm:"size:36;not null;index:idx_message_pair,priority:1" bson:"sender_id"`
	ReceiverID string     `gorm:"size:36;not null;index:idx_message_pair,priority:2;index:idx_message_unread,priority:1" bson:"receiver_id"`
	Content    string     `gorm:"type:text;not null" bson:"content"`
	IsRead     bool       `gorm:"not null;index:idx_message_unread,priority:2" bson:"is_read"`
	ReadAt     *time.Time `bson:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" bson:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// CounterpartOf returns the other party of the message relative to userID.
func (m *Message) CounterpartOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
