// Package validation checks request structs with validator/v10 and turns
// failures into Validation errors that name the JSON field.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
)

var (
	once     sync.Once
	validate *validator.Validate

	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{6,19}$`)
)

// Engine returns the shared validator with the project tags registered.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = fld.Name
			}
			return name
		})

		enums := map[string][]string{
			"gender":      db.Genders,
			"marital":     db.MaritalStatuses,
			"education":   db.EducationLevels,
			"profession":  db.ProfessionTypes,
			"income":      db.IncomeRanges,
			"complexion":  db.Complexions,
			"foodhabits":  db.FoodHabitTypes,
			"interest_st": db.InterestStatuses,
		}
		for tag, set := range enums {
			set := set
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				s := fl.Field().String()
				return s == "" || slices.Contains(set, s)
			})
		}
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Struct validates s and returns nil or a Validation error.
func Struct(s any) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return svcErr.Validation("invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Field()+": "+message(e))
	}
	return svcErr.Validation("%s", strings.Join(msgs, "; "))
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email format"
	case "phone":
		return "invalid phone number"
	case "min":
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "must be at most " + e.Param() + " characters"
		}
		return "must be at most " + e.Param()
	case "gender", "marital", "education", "profession", "income", "complexion", "foodhabits", "interest_st":
		return "unsupported value " + quote(e.Value())
	default:
		return "invalid value"
	}
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return "\"" + s + "\""
	}
	return ""
}
