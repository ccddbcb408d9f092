// Package auth verifies Firebase ID tokens sent by the apps and the admin panel
// and resolves the caller's role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/store"
)

// RoleClaim is the custom claim set by the admin panel when a role changes.
const RoleClaim = "role"

const sessionExpiredMsg = "Sesja wygasła. Zaloguj się ponownie"

// Verifier is implemented by *auth.Client.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup is implemented by *store.Users.
type UserLookup interface {
	Get(ctx context.Context, id string) (*contract.User, error)
}

type Identity struct {
	UserID string
	Email  string
	Role   contract.UserRole
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == contract.RoleAdmin
}

type Authenticator struct {
	verifier Verifier
	users    UserLookup
}

func New(verifier Verifier, users UserLookup) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// Authenticate reads the bearer token of req and verifies it.
func (a *Authenticator) Authenticate(req *http.Request) (*Identity, error) {
	idToken, err := BearerTokenFromRequest(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Auth, sessionExpiredMsg, err)
	}
	return a.Identify(req.Context(), idToken)
}

// Identify verifies idToken. The role comes from the role claim and, for tokens minted
// before the claim was set, from the user's document.
func (a *Authenticator) Identify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := a.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.Auth, sessionExpiredMsg, err)
	}
	id := &Identity{UserID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if role, ok := RoleFromClaims(token.Claims); ok {
		id.Role = role
		return id, nil
	}

	u, err := a.users.Get(ctx, token.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		id.Role = contract.RoleUser
	case err != nil:
		return nil, fmt.Errorf("load user %s: %w", token.UID, err)
	default:
		id.Role = u.Role
	}
	return id, nil
}

func RoleFromClaims(claims map[string]any) (contract.UserRole, bool) {
	s, ok := claims[RoleClaim].(string)
	if !ok || s == "" {
		return "", false
	}
	return contract.ParseUserRole(s), true
}

// RoleClaims builds the custom claims stored for role.
func RoleClaims(role contract.UserRole) map[string]any {
	return map[string]any{RoleClaim: string(role)}
}
