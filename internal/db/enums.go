package db

// Interest states.
const (
	InterestPending  = "pending"
	InterestAccepted = "accepted"
	InterestRejected = "rejected"
)

// Account states.
const (
	AccountActive   = "active"
	AccountInactive = "inactive"
	AccountDeleted  = "deleted"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Enumerated profile values accepted on registration and profile edits.
var (
	Genders = []string{GenderMale, GenderFemale}

	MaritalStatuses = []string{"never_married", "divorced", "widowed", "awaiting_divorce"}

	EducationLevels = []string{
		"high_school", "diploma", "bachelors", "masters", "doctorate", "professional", "other",
	}

	ProfessionTypes = []string{
		"private_sector", "government", "business", "self_employed", "defence",
		"civil_services", "not_working", "student", "other",
	}

	IncomeRanges = []string{
		"0-3L", "3-5L", "5-10L", "10-20L", "20-50L", "50L+", "undisclosed",
	}

	Complexions = []string{"very_fair", "fair", "wheatish", "dark"}

	FoodHabitTypes = []string{"vegetarian", "non_vegetarian", "eggetarian", "vegan", "jain"}

	InterestStatuses = []string{InterestPending, InterestAccepted, InterestRejected}
)

// OppositeGender returns the complementary gender used as the default search filter.
func OppositeGender(g string) string {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}
