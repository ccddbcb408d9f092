package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"The email address is badly formatted.", Validation},
		{"INVALID_ARGUMENT: weight must be positive", Validation},
		{"The password is invalid or the user does not have a password.", Auth},
		{"There is no user record corresponding to this identifier.", Auth},
		{"The email address is already in use by another account.", Auth},
		{"failed to verify ID token: token has expired", Auth},
		{"A network error (such as timeout, interrupted connection) has occurred.", Network},
		{"Unable to resolve host \"firestore.googleapis.com\"", Network},
		{"dial tcp: lookup firestore.googleapis.com: no such host", Network},
		{"something odd happened", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, FromMessage(tt.msg))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"app error kept", fmt.Errorf("save: %w", NewValidation("Nieprawidłowa waga")), Validation},
		{"deadline", fmt.Errorf("get user: %w", context.DeadlineExceeded), Network},
		{"grpc unavailable", status.Error(codes.Unavailable, "try later"), Network},
		{"grpc permission", status.Error(codes.PermissionDenied, "missing rights"), Auth},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad field"), Validation},
		{"grpc not found", status.Error(codes.NotFound, "no doc"), Unknown},
		{"grpc unknown uses message", status.Error(codes.Unknown, "network error"), Network},
		{"plain", errors.New("boom"), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestAlertFor(t *testing.T) {
	a := AlertFor(NewValidation("Hasło musi mieć co najmniej 7 znaków"), 3*time.Second)
	assert.Equal(t, Alert{Kind: Validation, Text: "Hasło musi mieć co najmniej 7 znaków", Duration: 3 * time.Second}, a)

	a = AlertFor(errors.New("connection refused"), time.Second)
	assert.Equal(t, Network, a.Kind)
	assert.Equal(t, Network.DisplayText(), a.Text)

	// unknown errors never leak internals
	a = AlertFor(Wrap(Unknown, "firestore write", errors.New("rpc error")), time.Second)
	assert.Equal(t, Unknown.DisplayText(), a.Text)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, Auth.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, Network.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Unknown.HTTPStatus())
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "save diet: boom", Wrap(Unknown, "save diet", errors.New("boom")).Error())
	assert.Equal(t, "auth error", (&Error{Kind: Auth}).Error())
}
