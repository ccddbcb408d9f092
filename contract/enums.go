package contract

import "strings"

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// ParseGender never fails, unknown values become GenderOther.
func ParseGender(s string) Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MALE", "M", "MĘŻCZYZNA":
		return GenderMale
	case "FEMALE", "F", "K", "KOBIETA":
		return GenderFemale
	default:
		return GenderOther
	}
}

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

func ParseUserRole(s string) UserRole {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

type MealType string

const (
	MealBreakfast       MealType = "BREAKFAST"
	MealSecondBreakfast MealType = "SECOND_BREAKFAST"
	MealLunch           MealType = "LUNCH"
	MealSnack           MealType = "SNACK"
	MealDinner          MealType = "DINNER"
)

// MealTypes in the order meals are eaten during a day.
var MealTypes = []MealType{MealBreakfast, MealSecondBreakfast, MealLunch, MealSnack, MealDinner}

var mealTypeLabels = map[string]MealType{
	"breakfast":        MealBreakfast,
	"second_breakfast": MealSecondBreakfast,
	"second breakfast": MealSecondBreakfast,
	"lunch":            MealLunch,
	"snack":            MealSnack,
	"dinner":           MealDinner,
	"śniadanie":        MealBreakfast,
	"drugie śniadanie": MealSecondBreakfast,
	"ii śniadanie":     MealSecondBreakfast,
	"obiad":            MealLunch,
	"podwieczorek":     MealSnack,
	"przekąska":        MealSnack,
	"kolacja":          MealDinner,
}

// ParseMealType accepts enum names and Polish labels, unknown values become MealSnack.
func ParseMealType(s string) MealType {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if mt, ok := mealTypeLabels[key]; ok {
		return mt
	}
	return MealSnack
}

func (m MealType) Order() int {
	for i, mt := range MealTypes {
		if mt == m {
			return i
		}
	}
	return len(MealTypes)
}

func (m MealType) Label() string {
	switch m {
	case MealBreakfast:
		return "Śniadanie"
	case MealSecondBreakfast:
		return "Drugie śniadanie"
	case MealLunch:
		return "Obiad"
	case MealDinner:
		return "Kolacja"
	default:
		return "Podwieczorek"
	}
}
