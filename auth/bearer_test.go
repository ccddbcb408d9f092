package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"no header", "", "", errMissingAuthorizationHeader},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", errInvalidAuthorizationHeader},
		{"scheme without space", "BearerabcToken", "", errInvalidAuthorizationHeader},
		{"empty token", "Bearer ", "", errInvalidAuthorizationHeader},
		{"blank token", "Bearer    ", "", errInvalidAuthorizationHeader},
		{"two tokens", "Bearer id-token Bearer other", "", errInvalidAuthorizationHeader},
		{"id token", "Bearer eyJhbGciOiJSUzI1NiJ9.payload.sig", "eyJhbGciOiJSUzI1NiJ9.payload.sig", nil},
		{"padded token", "Bearer   id-token  ", "id-token", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				r.Header.Set(authorizationHeader, tt.header)
			}
			got, err := BearerTokenFromRequest(r)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
