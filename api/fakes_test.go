package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/config"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/store"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeAuth map[string]*auth.Identity

func (f fakeAuth) Authenticate(r *http.Request) (*auth.Identity, error) {
	token, err := auth.BearerTokenFromRequest(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.Auth, "Sesja wygasła. Zaloguj się ponownie", err)
	}
	id, ok := f[token]
	if !ok {
		return nil, apperr.NewAuth("Sesja wygasła. Zaloguj się ponownie")
	}
	return id, nil
}

type fakeAccounts struct {
	created   []string
	deleted   []string
	claims    map[string]map[string]interface{}
	err       error
	claimsErr error
}

func (f *fakeAccounts) CreateUser(_ context.Context, u *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	uid := "uid-" + uuid.NewString()[:8]
	f.created = append(f.created, uid)
	return &firebaseauth.UserRecord{UserInfo: &firebaseauth.UserInfo{UID: uid}}, nil
}

func (f *fakeAccounts) DeleteUser(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeAccounts) SetCustomUserClaims(_ context.Context, uid string, claims map[string]interface{}) error {
	if f.claimsErr != nil {
		return f.claimsErr
	}
	if f.claims == nil {
		f.claims = map[string]map[string]interface{}{}
	}
	f.claims[uid] = claims
	return nil
}

type fakeUsers map[string]*contract.User

func (f fakeUsers) Get(_ context.Context, id string) (*contract.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) Save(_ context.Context, u *contract.User) error {
	cp := *u
	f[u.ID] = &cp
	return nil
}

// brokenUsers fails every write, like a Firestore outage after the Auth account exists.
type brokenUsers struct {
	fakeUsers
	err error
}

func (b brokenUsers) Save(context.Context, *contract.User) error { return b.err }

func (f fakeUsers) UpdateProfile(_ context.Context, id string, req contract.ProfileUpdateRequest) error {
	u, ok := f[id]
	if !ok {
		return store.ErrNotFound
	}
	u.FirstName, u.LastName = req.FirstName, req.LastName
	u.Gender = contract.ParseGender(req.Gender)
	u.BirthDate = req.BirthDate
	u.HeightCm, u.TargetWeightKg, u.WaterGoalMl = req.HeightCm, req.TargetWeightKg, req.WaterGoalMl
	return nil
}

func (f fakeUsers) SetRole(_ context.Context, id string, role contract.UserRole) error {
	u, ok := f[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = role
	return nil
}

func (f fakeUsers) Touch(_ context.Context, id string) error {
	if u, ok := f[id]; ok {
		u.LastActiveAt = testNow
	}
	return nil
}

func (f fakeUsers) List(context.Context) ([]contract.User, error) {
	out := make([]contract.User, 0, len(f))
	for _, u := range f {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeUsers) AddToken(_ context.Context, id, token string) error {
	u, ok := f[id]
	if !ok {
		return store.ErrNotFound
	}
	u.FCMTokens = append(u.FCMTokens, token)
	return nil
}

func (f fakeUsers) RemoveTokens(_ context.Context, id string, tokens ...string) error {
	u, ok := f[id]
	if !ok {
		return store.ErrNotFound
	}
	kept := u.FCMTokens[:0]
	for _, t := range u.FCMTokens {
		remove := false
		for _, r := range tokens {
			remove = remove || t == r
		}
		if !remove {
			kept = append(kept, t)
		}
	}
	u.FCMTokens = kept
	return nil
}

// docs is a tiny generic in-memory collection keyed by id.
type docs[T any] struct {
	items map[string]*T
	id    func(*T) *string
	owner func(*T) string
}

func newDocs[T any](id func(*T) *string, owner func(*T) string) *docs[T] {
	return &docs[T]{items: map[string]*T{}, id: id, owner: owner}
}

func (d *docs[T]) Save(_ context.Context, v *T) error {
	if *d.id(v) == "" {
		*d.id(v) = uuid.NewString()
	}
	cp := *v
	d.items[*d.id(v)] = &cp
	return nil
}

func (d *docs[T]) Get(_ context.Context, id string) (*T, error) {
	v, ok := d.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (d *docs[T]) ListByUser(_ context.Context, userID string) ([]T, error) {
	var out []T
	for _, v := range d.items {
		if d.owner(v) == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (d *docs[T]) all() []T {
	var out []T
	for _, v := range d.items {
		out = append(out, *v)
	}
	return out
}

func (d *docs[T]) Delete(_ context.Context, id string) error {
	if _, ok := d.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.items, id)
	return nil
}

type fakeRecipes struct{ *docs[contract.Recipe] }

func (f fakeRecipes) List(context.Context) ([]contract.Recipe, error) {
	out := f.all()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeShoppingLists struct{ *docs[contract.ShoppingList] }

func (f fakeShoppingLists) Save(ctx context.Context, l *contract.ShoppingList) error {
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = uuid.NewString()
		}
	}
	return f.docs.Save(ctx, l)
}

func (f fakeShoppingLists) SetItemChecked(_ context.Context, listID, itemID string, checked bool) (*contract.ShoppingList, error) {
	l, ok := f.items[listID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			l.Items[i].Checked = checked
			cp := *l
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeInvitations struct{ *docs[contract.PendingUser] }

func (f fakeInvitations) find(match func(*contract.PendingUser) bool) (*contract.PendingUser, error) {
	for _, p := range f.items {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f fakeInvitations) GetByToken(_ context.Context, token string) (*contract.PendingUser, error) {
	return f.find(func(p *contract.PendingUser) bool { return p.Token == token })
}

func (f fakeInvitations) FindByEmail(_ context.Context, email string) (*contract.PendingUser, error) {
	return f.find(func(p *contract.PendingUser) bool { return p.Email == email })
}

func (f fakeInvitations) List(context.Context) ([]contract.PendingUser, error) {
	return f.all(), nil
}

type fakeMeasurements map[string]*contract.BodyMeasurements

func (f fakeMeasurements) Add(_ context.Context, m *contract.BodyMeasurements) error {
	m.ID = uuid.NewString()
	cp := *m
	f[m.ID] = &cp
	return nil
}

func (f fakeMeasurements) Update(_ context.Context, m *contract.BodyMeasurements) error {
	old, ok := f[m.ID]
	if !ok || old.UserID != m.UserID {
		return store.ErrNotFound
	}
	cp := *m
	f[m.ID] = &cp
	return nil
}

func (f fakeMeasurements) Get(_ context.Context, userID, id string) (*contract.BodyMeasurements, error) {
	m, ok := f[id]
	if !ok || m.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeMeasurements) List(_ context.Context, userID string, _ store.MeasurementFilter) ([]contract.BodyMeasurements, error) {
	var out []contract.BodyMeasurements
	for _, m := range f {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f fakeMeasurements) Delete(_ context.Context, userID, id string) error {
	if m, ok := f[id]; !ok || m.UserID != userID {
		return store.ErrNotFound
	}
	delete(f, id)
	return nil
}

type fakeWater map[string]*contract.WaterIntake

func (f fakeWater) Get(_ context.Context, userID, date string, goalMl int) (*contract.WaterIntake, error) {
	if w, ok := f[userID+date]; ok {
		cp := *w
		return &cp, nil
	}
	return &contract.WaterIntake{UserID: userID, Date: date, GoalMl: goalMl}, nil
}

func (f fakeWater) Add(ctx context.Context, userID, date string, deltaMl, goalMl int) (*contract.WaterIntake, error) {
	w, _ := f.Get(ctx, userID, date, goalMl)
	w.AmountMl = max(0, w.AmountMl+deltaMl)
	w.GoalMl = goalMl
	f[userID+date] = w
	cp := *w
	return &cp, nil
}

func (f fakeWater) Set(_ context.Context, w *contract.WaterIntake) error {
	w.UpdatedAt = testNow
	cp := *w
	f[w.UserID+w.Date] = &cp
	return nil
}

type fakeEatenMeals map[string]*contract.EatenMeals

func (f fakeEatenMeals) Save(_ context.Context, em *contract.EatenMeals) error {
	em.UpdatedAt = testNow
	cp := *em
	f[contract.EatenMealsID(em.UserID, em.Date)] = &cp
	return nil
}

func (f fakeEatenMeals) Delete(_ context.Context, userID, date string) error {
	delete(f, contract.EatenMealsID(userID, date))
	return nil
}

func (f fakeEatenMeals) Get(_ context.Context, userID, date string) (*contract.EatenMeals, error) {
	if em, ok := f[contract.EatenMealsID(userID, date)]; ok {
		return em, nil
	}
	return &contract.EatenMeals{UserID: userID, Date: date}, nil
}

func (f fakeEatenMeals) Toggle(ctx context.Context, userID, date, mealID string) (bool, error) {
	em, _ := f.Get(ctx, userID, date)
	eaten := em.Toggle(mealID)
	f[contract.EatenMealsID(userID, date)] = em
	return eaten, nil
}

type fakeStatistics struct {
	stats *contract.AppStatistics
}

func (f *fakeStatistics) Get(context.Context) (*contract.AppStatistics, error) {
	if f.stats == nil {
		return nil, store.ErrNotFound
	}
	return f.stats, nil
}

func (f *fakeStatistics) Save(_ context.Context, s *contract.AppStatistics) error {
	f.stats = s
	return nil
}

type fakeStatsSource struct {
	users fakeUsers
	diets *docs[contract.Diet]
}

func (f fakeStatsSource) ListUsers(ctx context.Context) ([]contract.User, error) { return f.users.List(ctx) }
func (f fakeStatsSource) CountDiets(context.Context) (int, error)                { return len(f.diets.items), nil }
func (f fakeStatsSource) CountRecipes(context.Context) (int, error)              { return 0, nil }
func (f fakeStatsSource) CountPendingUsers(context.Context) (int, error)         { return 0, nil }
func (f fakeStatsSource) CountShoppingLists(context.Context) (int, error)        { return 0, nil }

type fakePurger struct {
	purged []string
	users  fakeUsers
}

func (f *fakePurger) PurgeUser(_ context.Context, userID string) (int, error) {
	f.purged = append(f.purged, userID)
	delete(f.users, userID)
	return 3, nil
}

type fakeObjects map[string][]byte

func (f fakeObjects) Put(_ context.Context, objectPath, _ string, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f[objectPath] = b
	return int64(len(b)), nil
}

func (f fakeObjects) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	b, ok := f[objectPath]
	if !ok {
		return nil, files.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f fakeObjects) Delete(_ context.Context, objectPath string) error {
	if _, ok := f[objectPath]; !ok {
		return files.ErrNotFound
	}
	delete(f, objectPath)
	return nil
}

type testEnv struct {
	server        *Server
	router        *gin.Engine
	users         fakeUsers
	accounts      *fakeAccounts
	diets         *docs[contract.Diet]
	dietFiles     *docs[contract.DietFile]
	shoppingLists fakeShoppingLists
	recipes       fakeRecipes
	invitations   fakeInvitations
	measurements  fakeMeasurements
	statistics    *fakeStatistics
	purger        *fakePurger
	objects       fakeObjects
	events        <-chan eventbus.Event
}

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := fakeUsers{
		"u1":    {ID: "u1", Email: "anna@example.com", FirstName: "Anna", LastName: "Nowak", Role: contract.RoleUser, Gender: contract.GenderFemale, HeightCm: 175},
		"admin": {ID: "admin", Email: "admin@example.com", FirstName: "Jan", LastName: "Kowalski", Role: contract.RoleAdmin, Gender: contract.GenderMale},
	}
	env := &testEnv{
		users:         users,
		accounts:      &fakeAccounts{},
		diets:         newDocs(func(d *contract.Diet) *string { return &d.ID }, func(d *contract.Diet) string { return d.UserID }),
		dietFiles:     newDocs(func(f *contract.DietFile) *string { return &f.ID }, func(f *contract.DietFile) string { return f.UserID }),
		shoppingLists: fakeShoppingLists{newDocs(func(l *contract.ShoppingList) *string { return &l.ID }, func(l *contract.ShoppingList) string { return l.UserID })},
		recipes:       fakeRecipes{newDocs(func(r *contract.Recipe) *string { return &r.ID }, func(r *contract.Recipe) string { return r.CreatedBy })},
		invitations:   fakeInvitations{newDocs(func(p *contract.PendingUser) *string { return &p.ID }, func(p *contract.PendingUser) string { return p.InvitedBy })},
		measurements:  fakeMeasurements{},
		statistics:    &fakeStatistics{},
		purger:        &fakePurger{users: users},
		objects:       fakeObjects{},
	}
	bus := eventbus.New()
	events, stop := bus.Stream(16)
	t.Cleanup(stop)
	env.events = events

	env.server = NewServer(Deps{
		Config: &config.Config{
			AllowedOrigins:     []string{"http://localhost:3000"},
			InvitationTTL:      72 * time.Hour,
			InvitationBaseURL:  "https://app.example.com/invite/",
			ActiveUserWindow:   30 * 24 * time.Hour,
			DefaultWaterGoalMl: 2000,
			AlertDuration:      3 * time.Second,
			MaxUploadBytes:     1 << 20,
			StorageBucket:      "diet-app.appspot.com",
		},
		Auth: fakeAuth{
			userToken:  {UserID: "u1", Role: contract.RoleUser},
			adminToken: {UserID: "admin", Role: contract.RoleAdmin},
		},
		Accounts:      env.accounts,
		Users:         users,
		Diets:         env.diets,
		DietFiles:     env.dietFiles,
		EatenMeals:    fakeEatenMeals{},
		ShoppingLists: env.shoppingLists,
		Measurements:  env.measurements,
		Water:         fakeWater{},
		Recipes:       env.recipes,
		Invitations:   env.invitations,
		Statistics:    env.statistics,
		StatsSource:   fakeStatsSource{users: users, diets: env.diets},
		Purger:        env.purger,
		Objects:       env.objects,
		Bus:           bus,
		Now:           func() time.Time { return testNow },
	})
	env.router = env.server.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) nextEvent(t *testing.T) eventbus.Event {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	default:
		t.Fatal("no event published")
		return eventbus.Event{}
	}
}
