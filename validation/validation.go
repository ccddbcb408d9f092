package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klipach/dietapp/apperr"
)

const (
	MinPasswordLength = 7
	DateLayout        = "2006-01-02"
)

const (
	msgEmpty            = "To pole nie może być puste"
	msgEmail            = "Nieprawidłowy adres e-mail"
	msgPasswordTooShort = "Hasło musi mieć co najmniej 7 znaków"
	msgPasswordSpaces   = "Hasło nie może zawierać spacji"
	msgPasswordMismatch = "Hasła nie są identyczne"
	msgName             = "Pole może zawierać tylko litery, spacje i myślniki"
	msgWeight           = "Waga musi mieścić się w zakresie 20-400 kg"
	msgHeight           = "Wzrost musi mieścić się w zakresie 50-250 cm"
	msgCircumference    = "Obwód musi mieścić się w zakresie 10-300 cm"
	msgBodyFat          = "Poziom tkanki tłuszczowej musi mieścić się w zakresie 0-100%"
	msgWater            = "Ilość wody musi mieścić się w zakresie 1-5000 ml"
	msgDate             = "Nieprawidłowa data, oczekiwany format RRRR-MM-DD"
	msgCalories         = "Kaloryczność musi mieścić się w zakresie 0-10000 kcal"
)

var (
	emailRegexp = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	nameRegexp  = regexp.MustCompile(`^[A-Za-zĄĆĘŁŃÓŚŹŻąćęłńóśźż]+(?:[ \-][A-Za-zĄĆĘŁŃÓŚŹŻąćęłńóśźż]+)*$`)
	spaceRegexp = regexp.MustCompile(`\s`)
)

func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.NewValidation(msgEmpty)
	}
	if !emailRegexp.MatchString(email) || strings.Contains(email, "..") {
		return apperr.NewValidation(msgEmail)
	}
	return nil
}

func Password(password string) error {
	if password == "" {
		return apperr.NewValidation(msgEmpty)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperr.NewValidation(msgPasswordTooShort)
	}
	if spaceRegexp.MatchString(password) {
		return apperr.NewValidation(msgPasswordSpaces)
	}
	return nil
}

func PasswordsMatch(password, repeated string) error {
	if password != repeated {
		return apperr.NewValidation(msgPasswordMismatch)
	}
	return nil
}

func Name(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.NewValidation(msgEmpty)
	}
	if !nameRegexp.MatchString(name) {
		return apperr.NewValidation(msgName)
	}
	return nil
}

func Weight(kg float64) error {
	return inRange(kg, 20, 400, msgWeight)
}

func Height(cm float64) error {
	return inRange(cm, 50, 250, msgHeight)
}

// Circumference accepts zero, which means the measurement was skipped.
func Circumference(cm float64) error {
	if cm == 0 {
		return nil
	}
	return inRange(cm, 10, 300, msgCircumference)
}

func BodyFat(pct float64) error {
	return inRange(pct, 0, 100, msgBodyFat)
}

func WaterAmount(ml int) error {
	if ml < 1 || ml > 5000 {
		return apperr.NewValidation(msgWater)
	}
	return nil
}

func Calories(kcal float64) error {
	return inRange(kcal, 0, 10000, msgCalories)
}

func Date(value string) error {
	_, err := ParseDate(value)
	return err
}

func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperr.NewValidation(msgDate)
	}
	return d, nil
}

// First returns the first failing check.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func inRange(v, lo, hi float64, msg string) error {
	if v < lo || v > hi {
		return apperr.NewValidation(msg)
	}
	return nil
}
