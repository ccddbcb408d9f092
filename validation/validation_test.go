package validation

import (
	"errors"
	"testing"

	"github.com/klipach/dietapp/apperr"
	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr string
	}{
		{"jan.kowalski@example.com", ""},
		{"  anna+dieta@poczta.pl ", ""},
		{"", msgEmpty},
		{"jan.kowalski", msgEmail},
		{"jan@localhost", msgEmail},
		{"jan@@example.com", msgEmail},
		{"jan..k@example.com", msgEmail},
		{"jan kowalski@example.com", msgEmail},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assertValidation(t, Email(tt.email), tt.wantErr)
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"empty", "", msgEmpty},
		{"six characters", "abc123", msgPasswordTooShort},
		{"one character", "a", msgPasswordTooShort},
		{"seven characters", "abc1234", ""},
		{"long", "bardzoDlugieHaslo2024", ""},
		{"polish letters count as runes", "żółćęśą", ""},
		{"contains space", "abc 12345", msgPasswordSpaces},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, Password(tt.password), tt.wantErr)
		})
	}
}

func TestPasswordsMatch(t *testing.T) {
	assert.NoError(t, PasswordsMatch("abc1234", "abc1234"))
	assertValidation(t, PasswordsMatch("abc1234", "abc12345"), msgPasswordMismatch)
}

func TestName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
	}{
		{"Jan", ""},
		{"Łucja", ""},
		{"Anna Maria", ""},
		{"Kowalska-Nowak", ""},
		{"", msgEmpty},
		{"Jan2", msgName},
		{"-Jan", msgName},
		{"Jan  Maria", msgName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, Name(tt.name), tt.wantErr)
		})
	}
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{"weight ok", Weight(72.5), ""},
		{"weight too low", Weight(19.9), msgWeight},
		{"weight too high", Weight(401), msgWeight},
		{"height ok", Height(180), ""},
		{"height too low", Height(49), msgHeight},
		{"circumference skipped", Circumference(0), ""},
		{"circumference ok", Circumference(80), ""},
		{"circumference too low", Circumference(5), msgCircumference},
		{"body fat ok", BodyFat(22.5), ""},
		{"body fat negative", BodyFat(-1), msgBodyFat},
		{"water ok", WaterAmount(250), ""},
		{"water zero", WaterAmount(0), msgWater},
		{"water too much", WaterAmount(5001), msgWater},
		{"calories ok", Calories(450), ""},
		{"calories negative", Calories(-5), msgCalories},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, tt.err, tt.wantErr)
		})
	}
}

func TestDate(t *testing.T) {
	assert.NoError(t, Date("2024-03-01"))
	assertValidation(t, Date("01.03.2024"), msgDate)
	assertValidation(t, Date("2024-02-30"), msgDate)
}

func TestFirst(t *testing.T) {
	err := First(nil, Weight(10), Height(10))
	assertValidation(t, err, msgWeight)
	assert.NoError(t, First(nil, nil))
}

func assertValidation(t *testing.T, err error, wantMsg string) {
	t.Helper()
	if wantMsg == "" {
		assert.NoError(t, err)
		return
	}
	var appErr *apperr.Error
	if assert.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err) {
		assert.Equal(t, apperr.Validation, appErr.Kind)
		assert.Equal(t, wantMsg, appErr.Message)
	}
}
