package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			writeJSON(w, http.StatusUnauthorized, contract.ErrorResponse{Error: "auth", Message: "Sesja wygasła. Zaloguj się ponownie"})
			return
		}
		assert.Equal(t, "nowak", r.URL.Query().Get("q"))
		assert.Equal(t, "USER", r.URL.Query().Get("role"))
		assert.False(t, r.URL.Query().Has("gender"))
		writeJSON(w, http.StatusOK, contract.UsersResponse{Users: []contract.User{{ID: "u1"}}, Total: 1})
	})
	mux.HandleFunc("PUT /api/admin/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		var req contract.RoleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, contract.User{ID: r.PathValue("id"), Role: contract.ParseUserRole(req.Role)})
	})
	mux.HandleFunc("DELETE /api/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "admin" {
			writeJSON(w, http.StatusBadRequest, contract.ErrorResponse{Error: "validation", Message: "Nie możesz usunąć własnego konta"})
			return
		}
		writeJSON(w, http.StatusNotFound, contract.ErrorResponse{Error: "not_found", Message: "Nie znaleziono"})
	})
	mux.HandleFunc("POST /api/admin/statistics/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contract.AppStatistics{TotalUsers: 5})
	})
	mux.HandleFunc("GET /api/admin/statistics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contract.AppStatistics{TotalUsers: 4})
	})
	mux.HandleFunc("DELETE /api/invitations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/recipes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, contract.ErrorResponse{Error: "unknown"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/", "secret")
	ctx := t.Context()

	res, err := c.Users(ctx, UserFilter{Query: "nowak", Role: "USER"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	u, err := c.SetRole(ctx, "u1", contract.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, contract.RoleAdmin, u.Role)

	st, err := c.Statistics(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalUsers)
	st, err = c.Statistics(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 5, st.TotalUsers)

	assert.NoError(t, c.RevokeInvitation(ctx, "p1"))
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t)
	ctx := t.Context()

	_, err := New(srv.URL, "expired").Users(ctx, UserFilter{Query: "nowak", Role: "USER"})
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Sesja wygasła")

	c := New(srv.URL, "secret")
	err = c.DeleteUser(ctx, "admin")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	assert.ErrorIs(t, c.DeleteUser(ctx, "ghost"), ErrNotFound)

	_, err = c.Recipes(ctx, "", "")
	assert.Equal(t, apperr.Unknown, apperr.KindOf(err))

	srv.Close()
	_, err = c.Me(ctx)
	assert.Equal(t, apperr.Network, apperr.KindOf(err))
}
