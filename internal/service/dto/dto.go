// Package dto holds the response shapes services hand to transports.
// Secrets (credential hash, verification and reset tokens) never leave db.User.
package dto

import (
	"time"

	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/repository"
)

// SelfProfile is the owner's view of their own record.
type SelfProfile struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Role            string     `json:"role"`
	Name            string     `json:"name"`
	Gender          string     `json:"gender"`
	DateOfBirth     string     `json:"dateOfBirth"`
	Age             int        `json:"age"`
	MaritalStatus   string     `json:"maritalStatus"`
	Height          string     `json:"height"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	Country         string     `json:"country"`
	Religion        string     `json:"religion,omitempty"`
	Caste           string     `json:"caste,omitempty"`
	SubCaste        string     `json:"subCaste,omitempty"`
	MotherTongue    string     `json:"motherTongue,omitempty"`
	Education       string     `json:"education,omitempty"`
	Profession      string     `json:"profession,omitempty"`
	AnnualIncome    string     `json:"annualIncome,omitempty"`
	Complexion      string     `json:"complexion,omitempty"`
	FoodHabits      string     `json:"foodHabits,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ProfilePicture  string     `json:"profilePicture,omitempty"`
	Photos          []string   `json:"photos"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	AccountStatus   string     `json:"accountStatus"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PublicProfile is what another member sees.
type PublicProfile struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Gender         string     `json:"gender"`
	Age            int        `json:"age"`
	MaritalStatus  string     `json:"maritalStatus"`
	Height         string     `json:"height"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	Country        string     `json:"country"`
	Religion       string     `json:"religion,omitempty"`
	Caste          string     `json:"caste,omitempty"`
	SubCaste       string     `json:"subCaste,omitempty"`
	MotherTongue   string     `json:"motherTongue,omitempty"`
	Education      string     `json:"education,omitempty"`
	Profession     string     `json:"profession,omitempty"`
	AnnualIncome   string     `json:"annualIncome,omitempty"`
	Complexion     string     `json:"complexion,omitempty"`
	FoodHabits     string     `json:"foodHabits,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	Photos         []string   `json:"photos"`
	IsShortlisted  bool       `json:"isShortlisted"`
	Online         bool       `json:"online"`
	LastSeenAt     *time.Time `json:"lastSeenAt,omitempty"`
}

// Card is the compact counterpart summary attached to list rows.
type Card struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Gender         string `json:"gender,omitempty"`
	Age            int    `json:"age,omitempty"`
	City           string `json:"city,omitempty"`
	Profession     string `json:"profession,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type Interest struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	ReceiverID  string    `json:"receiverId"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Counterpart *Card     `json:"counterpart,omitempty"`
}

type Shortlist struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Profile   Card      `json:"profile"`
}

type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	Sender     *Card      `json:"sender,omitempty"`
	Receiver   *Card      `json:"receiver,omitempty"`
}

type Conversation struct {
	Counterpart   Card      `json:"counterpart"`
	LastMessage   string    `json:"lastMessage"`
	LastSenderID  string    `json:"lastSenderId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int64     `json:"unreadCount"`
}

// Age returns completed years between dob and now.
func Age(dob, now time.Time) int {
	if dob.IsZero() {
		return 0
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func photos(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}

func NewSelfProfile(u *db.User, now time.Time) SelfProfile {
	return SelfProfile{
		ID:              u.ID,
		Email:           u.Email,
		Phone:           u.Phone,
		Role:            u.Role,
		Name:            u.Name,
		Gender:          u.Gender,
		DateOfBirth:     u.DateOfBirth.Format(time.DateOnly),
		Age:             Age(u.DateOfBirth, now),
		MaritalStatus:   u.MaritalStatus,
		Height:          u.Height,
		City:            u.City,
		State:           u.State,
		Country:         u.Country,
		Religion:        u.Religion,
		Caste:           u.Caste,
		SubCaste:        u.SubCaste,
		MotherTongue:    u.MotherTongue,
		Education:       u.Education,
		Profession:      u.Profession,
		AnnualIncome:    u.AnnualIncome,
		Complexion:      u.Complexion,
		FoodHabits:      u.FoodHabits,
		Bio:             u.Bio,
		ProfilePicture:  u.ProfilePicture,
		Photos:          photos(u.Photos),
		IsEmailVerified: u.IsEmailVerified,
		IsActive:        u.IsActive,
		AccountStatus:   u.AccountStatus,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func NewPublicProfile(u *db.User, now time.Time) PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Name:           u.Name,
		Gender:         u.Gender,
		Age:            Age(u.DateOfBirth, now),
		MaritalStatus:  u.MaritalStatus,
		Height:         u.Height,
		City:           u.City,
		State:          u.State,
		Country:        u.Country,
		Religion:       u.Religion,
		Caste:          u.Caste,
		SubCaste:       u.SubCaste,
		MotherTongue:   u.MotherTongue,
		Education:      u.Education,
		Profession:     u.Profession,
		AnnualIncome:   u.AnnualIncome,
		Complexion:     u.Complexion,
		FoodHabits:     u.FoodHabits,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Photos:         photos(u.Photos),
	}
}

func NewCard(u *db.User, now time.Time) Card {
	return Card{
		ID:             u.ID,
		Name:           u.Name,
		Gender:         u.Gender,
		Age:            Age(u.DateOfBirth, now),
		City:           u.City,
		Profession:     u.Profession,
		ProfilePicture: u.ProfilePicture,
	}
}

func NewInterest(in *db.Interest) Interest {
	return Interest{
		ID:         in.ID,
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Status:     in.Status,
		Message:    in.Message,
		CreatedAt:  in.CreatedAt,
		UpdatedAt:  in.UpdatedAt,
	}
}

// NewInterestWithCounterpart maps a joined row; counterpartID selects which
// side of the interest the joined columns describe.
func NewInterestWithCounterpart(row repository.InterestWithUser, counterpartID string, now time.Time) Interest {
	out := NewInterest(&row.Interest)
	card := Card{
		ID:             counterpartID,
		Name:           row.CounterpartName,
		Gender:         row.CounterpartGender,
		City:           row.CounterpartCity,
		Profession:     row.CounterpartProfession,
		ProfilePicture: row.CounterpartProfilePicture,
	}
	if row.CounterpartDateOfBirth != nil {
		card.Age = Age(*row.CounterpartDateOfBirth, now)
	}
	out.Counterpart = &card
	return out
}

func NewShortlist(row repository.ShortlistWithUser) Shortlist {
	return Shortlist{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		Profile: Card{
			ID:             row.ShortlistedUserID,
			Name:           row.TargetName,
			Gender:         row.TargetGender,
			City:           row.TargetCity,
			Profession:     row.TargetProfession,
			ProfilePicture: row.TargetProfilePicture,
		},
	}
}

func NewMessage(m *db.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}
