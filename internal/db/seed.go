package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedPassword is the credential of every seeded account.
const SeedPassword = "password123"

var (
	seedCities   = [][2]string{{"Pune", "Maharashtra"}, {"Mumbai", "Maharashtra"}, {"Bengaluru", "Karnataka"}, {"Jaipur", "Rajasthan"}, {"Kochi", "Kerala"}, {"Lucknow", "Uttar Pradesh"}}
	seedReligion = []string{"hindu", "muslim", "christian", "sikh", "jain"}
	seedMale     = []string{"Arjun", "Rohan", "Kabir", "Vikram", "Aditya", "Imran", "Karan", "Nikhil", "Rahul", "Sanjay"}
	seedFemale   = []string{"Ananya", "Priya", "Meera", "Kavya", "Isha", "Sara", "Diya", "Neha", "Pooja", "Riya"}
	seedLines    = []string{
		"Hi, lovely to connect!",
		"Would you like to talk this weekend?",
		"Our families are from the same town.",
		"Thanks for accepting.",
	}
)

// SeedTestData resets the database and populates it with demo identities,
// interests, shortlists and messages.
//
// Behavior:
//  1. Clears the messages, shortlists, interests and users tables.
//  2. Creates 20 verified members (10 male, 10 female) and one admin, all
//     with SeedPassword.
//  3. Each member sends interests to ~4 members of the opposite gender;
//     roughly a third are accepted and a sixth rejected.
//  4. Every accepted pair gets a short exchange of messages; a few members
//     bookmark others.
func SeedTestData(database *gorm.DB, logger *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "shortlists", "interests", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	logger.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Members ---
	var males, females []User
	for i := 0; i < 20; i++ {
		gender, name := GenderMale, seedMale[i%10]
		if i >= 10 {
			gender, name = GenderFemale, seedFemale[i%10]
		}
		u := seedUser(r, i+1, name, gender, RoleUser, string(hash))
		if err := database.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		if gender == GenderMale {
			males = append(males, u)
		} else {
			females = append(females, u)
		}
	}
	admin := seedUser(r, 0, "Site Admin", GenderFemale, RoleAdmin, string(hash))
	if err := database.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	logger.Info("seeded users", "members", len(males)+len(females), "admin", admin.Email)

	// --- Interests, shortlists, messages ---
	interests, messages, shortlists := 0, 0, 0
	seen := make(map[[2]string]bool)
	for _, group := range [][2][]User{{males, females}, {females, males}} {
		senders, receivers := group[0], group[1]
		for _, sender := range senders {
			for j := 0; j < 4; j++ {
				receiver := receivers[r.Intn(len(receivers))]
				pair := [2]string{sender.ID, receiver.ID}
				if seen[pair] || seen[[2]string{receiver.ID, sender.ID}] {
					continue
				}
				seen[pair] = true

				status := InterestPending
				switch roll := r.Intn(6); {
				case roll < 2:
					status = InterestAccepted
				case roll == 2:
					status = InterestRejected
				}
				in := Interest{SenderID: sender.ID, ReceiverID: receiver.ID, Status: status, Message: seedLines[0]}
				if err := database.Create(&in).Error; err != nil {
					return fmt.Errorf("failed to seed interest: %w", err)
				}
				interests++

				if status == InterestAccepted {
					n, err := seedConversation(database, r, sender.ID, receiver.ID)
					if err != nil {
						return err
					}
					messages += n
				}
			}

			if r.Intn(3) == 0 {
				target := receivers[r.Intn(len(receivers))]
				sl := Shortlist{UserID: sender.ID, ShortlistedUserID: target.ID}
				if err := database.Create(&sl).Error; err == nil {
					shortlists++
				}
			}
		}
	}
	logger.Info("seeded relations", "interests", interests, "messages", messages, "shortlists", shortlists)
	return nil
}

func seedUser(r *rand.Rand, n int, name, gender, role, hash string) User {
	email := fmt.Sprintf("member%d@example.com", n)
	if role == RoleAdmin {
		email = "admin@example.com"
	}
	phone := fmt.Sprintf("+9198765%05d", n)
	place := seedCities[r.Intn(len(seedCities))]
	lastLogin := time.Now().UTC().Add(-time.Duration(r.Intn(500)) * time.Hour)
	return User{
		Email:           email,
		EmailKey:        &email,
		Phone:           phone,
		PhoneKey:        &phone,
		PasswordHash:    hash,
		Role:            role,
		Name:            name,
		Gender:          gender,
		DateOfBirth:     time.Date(1988+r.Intn(12), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
		MaritalStatus:   MaritalStatuses[0],
		Height:          fmt.Sprintf("5'%d\"", r.Intn(12)),
		City:            place[0],
		State:           place[1],
		Country:         "India",
		Religion:        seedReligion[r.Intn(len(seedReligion))],
		Education:       EducationLevels[r.Intn(len(EducationLevels))],
		Profession:      ProfessionTypes[r.Intn(len(ProfessionTypes))],
		AnnualIncome:    IncomeRanges[r.Intn(len(IncomeRanges))],
		FoodHabits:      FoodHabitTypes[r.Intn(len(FoodHabitTypes))],
		IsEmailVerified: true,
		IsActive:        true,
		AccountStatus:   AccountActive,
		LastLoginAt:     &lastLogin,
	}
}

// seedConversation writes a few alternating messages between a and b. The
// older half is marked read.
func seedConversation(database *gorm.DB, r *rand.Rand, a, b string) (int, error) {
	n := 2 + r.Intn(3)
	start := time.Now().UTC().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		at := start.Add(time.Duration(i) * time.Hour)
		m := Message{
			SenderID:   from,
			ReceiverID: to,
			Content:    seedLines[r.Intn(len(seedLines))],
			CreatedAt:  at,
		}
		if i < n/2 {
			readAt := at.Add(10 * time.Minute)
			m.IsRead, m.ReadAt = true, &readAt
		}
		if err := database.Create(&m).Error; err != nil {
			return i, fmt.Errorf("failed to seed message: %w", err)
		}
	}
	return n, nil
}
