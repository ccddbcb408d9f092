package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorStore connects to the Firestore emulator; run with
// FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./store/...
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "diet-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	s := New(client)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestUsersRoundTrip(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	u := &contract.User{ID: "u1", Email: "jan@example.com", FirstName: "Jan", Role: "weird", Gender: "female"}
	require.NoError(t, s.Users().Save(ctx, u))

	got, err := s.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, contract.RoleUser, got.Role)
	assert.Equal(t, contract.GenderFemale, got.Gender)

	require.NoError(t, s.Users().AddToken(ctx, "u1", "tok-a"))
	require.NoError(t, s.Users().AddToken(ctx, "u1", "tok-a"))
	require.NoError(t, s.Users().AddToken(ctx, "u1", "tok-b"))
	tokens, err := s.Users().Tokens(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tok-a", "tok-b"}, tokens)

	require.NoError(t, s.Users().RemoveTokens(ctx, "u1", "tok-a"))
	tokens, err = s.Users().Tokens(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-b"}, tokens)

	_, err = s.Users().Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Users().SetRole(ctx, "missing", contract.RoleAdmin), ErrNotFound)
}

func TestEatenMealsToggle(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	repo := s.EatenMeals()

	em, err := repo.Get(ctx, "u1", "2024-03-01")
	require.NoError(t, err)
	assert.Empty(t, em.MealIDs)

	eaten, err := repo.Toggle(ctx, "u1", "2024-03-01", "m1")
	require.NoError(t, err)
	assert.True(t, eaten)

	eaten, err = repo.Toggle(ctx, "u1", "2024-03-01", "m1")
	require.NoError(t, err)
	assert.False(t, eaten)
}

func TestWaterAddClampsAtZero(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	w, err := s.Water().Add(ctx, "u1", "2024-03-01", 250, 2000)
	require.NoError(t, err)
	assert.Equal(t, 250, w.AmountMl)

	w, err = s.Water().Add(ctx, "u1", "2024-03-01", -500, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, w.AmountMl)
	assert.Equal(t, 2000, w.GoalMl)
}

func TestShoppingListCheckItem(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	l := &contract.ShoppingList{UserID: "u1", Items: []contract.ShoppingItem{{Name: "mleko", Quantity: 1, Unit: "l"}}}
	require.NoError(t, s.ShoppingLists().Save(ctx, l))

	updated, err := s.ShoppingLists().SetItemChecked(ctx, l.ID, l.Items[0].ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Items[0].Checked)

	_, err = s.ShoppingLists().SetItemChecked(ctx, l.ID, "nope", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeUser(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	require.NoError(t, s.Users().Save(ctx, &contract.User{ID: "u2", Email: "a@example.com"}))
	require.NoError(t, s.Diets().Save(ctx, &contract.Diet{UserID: "u2", Name: "Redukcja"}))
	require.NoError(t, s.Measurements().Add(ctx, &contract.BodyMeasurements{UserID: "u2", Date: "2024-03-01", WeightKg: 80}))

	n, err := s.PurgeUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	diets, err := s.Diets().ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, diets)
	_, err = s.Users().Get(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)

	// only the (already missing) user document is left to delete
	n, err = s.PurgeUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type stubJob struct{ err error }

func (j stubJob) Results() (*firestore.WriteResult, error) {
	if j.err != nil {
		return nil, j.err
	}
	return &firestore.WriteResult{}, nil
}

func TestFirstJobError(t *testing.T) {
	denied := errors.New("permission denied")
	tests := []struct {
		name    string
		jobs    []writeJob
		wantErr error
	}{
		{"no jobs", nil, nil},
		{"all succeed", []writeJob{stubJob{}, stubJob{}}, nil},
		{"one fails", []writeJob{stubJob{}, stubJob{err: denied}, stubJob{}}, denied},
		{"first failure wins", []writeJob{stubJob{err: denied}, stubJob{err: errors.New("aborted")}}, denied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := firstJobError(tt.jobs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSortUsers(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	users := []contract.User{
		{ID: "legacy-b"},
		{ID: "old", CreatedAt: day(1)},
		{ID: "legacy-a"},
		{ID: "new", CreatedAt: day(5)},
	}
	sortUsers(users)

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	assert.Equal(t, []string{"new", "old", "legacy-a", "legacy-b"}, ids)
}
