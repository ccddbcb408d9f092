package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if t, ok := f[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("ID token has expired")
}

type fakeUsers map[string]*contract.User

func (f fakeUsers) Get(_ context.Context, id string) (*contract.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func TestIdentify(t *testing.T) {
	a := New(
		fakeVerifier{
			"claim":   {UID: "u1", Claims: map[string]any{"role": "admin", "email": "a@b.pl"}},
			"doc":     {UID: "u2", Claims: map[string]any{}},
			"missing": {UID: "u3", Claims: map[string]any{}},
		},
		fakeUsers{"u2": {ID: "u2", Role: contract.RoleAdmin}},
	)

	tests := []struct {
		token   string
		want    *Identity
		wantErr apperr.Kind
	}{
		{"claim", &Identity{UserID: "u1", Email: "a@b.pl", Role: contract.RoleAdmin}, 0},
		{"doc", &Identity{UserID: "u2", Role: contract.RoleAdmin}, 0},
		{"missing", &Identity{UserID: "u3", Role: contract.RoleUser}, 0},
		{"bad", nil, apperr.Auth},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := a.Identify(context.Background(), tt.token)
			if tt.want == nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticateWithoutHeader(t *testing.T) {
	a := New(fakeVerifier{}, fakeUsers{})
	_, err := a.Authenticate(httptest.NewRequest("GET", "/api/me", nil))
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	assert.ErrorIs(t, err, errMissingAuthorizationHeader)
}

func TestRoleClaims(t *testing.T) {
	role, ok := RoleFromClaims(RoleClaims(contract.RoleAdmin))
	assert.True(t, ok)
	assert.Equal(t, contract.RoleAdmin, role)

	_, ok = RoleFromClaims(map[string]any{"role": 1})
	assert.False(t, ok)
	assert.False(t, (*Identity)(nil).IsAdmin())
}
