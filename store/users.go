package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/klipach/dietapp/contract"
)

type Users struct {
	client *firestore.Client
	now    func() time.Time
}

func (r *Users) ref(id string) *firestore.DocumentRef {
	return r.client.Collection(contract.UsersCollection).Doc(id)
}

func (r *Users) Get(ctx context.Context, id string) (*contract.User, error) {
	u, err := getDoc[contract.User](ctx, r.ref(id))
	if err != nil {
		return nil, err
	}
	u.ID = id
	u.Normalize()
	return u, nil
}

func (r *Users) Save(ctx context.Context, u *contract.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	u.Normalize()
	if _, err := r.ref(u.ID).Set(ctx, u); err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

func (r *Users) UpdateProfile(ctx context.Context, id string, req contract.ProfileUpdateRequest) error {
	_, err := r.ref(id).Update(ctx, []firestore.Update{
		{Path: "firstName", Value: req.FirstName},
		{Path: "lastName", Value: req.LastName},
		{Path: "gender", Value: contract.ParseGender(req.Gender)},
		{Path: "birthDate", Value: req.BirthDate},
		{Path: "heightCm", Value: req.HeightCm},
		{Path: "targetWeightKg", Value: req.TargetWeightKg},
		{Path: "waterGoalMl", Value: req.WaterGoalMl},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

func (r *Users) SetRole(ctx context.Context, id string, role contract.UserRole) error {
	_, err := r.ref(id).Update(ctx, []firestore.Update{{Path: "role", Value: role}})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set role of %s: %w", id, err)
	}
	return nil
}

// Touch records activity; used for the active users statistic.
func (r *Users) Touch(ctx context.Context, id string) error {
	_, err := r.ref(id).Update(ctx, []firestore.Update{{Path: "lastActiveAt", Value: r.now()}})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("touch user %s: %w", id, err)
	}
	return nil
}

// List returns all users, newest first. Sorting happens in memory because an OrderBy would skip
// documents written without createdAt.
func (r *Users) List(ctx context.Context) ([]contract.User, error) {
	docs, err := r.client.Collection(contract.UsersCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]contract.User, 0, len(docs))
	for _, d := range docs {
		var u contract.User
		if err := d.DataTo(&u); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", d.Ref.ID, err)
		}
		u.ID = d.Ref.ID
		u.Normalize()
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

// sortUsers orders by creation time descending; users without createdAt go last, by ID.
func sortUsers(users []contract.User) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].CreatedAt, users[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return users[i].ID < users[j].ID
	})
}

// FCM tokens live on the user document.

func (r *Users) AddToken(ctx context.Context, id, token string) error {
	_, err := r.ref(id).Update(ctx, []firestore.Update{{Path: "fcmTokens", Value: firestore.ArrayUnion(token)}})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("add fcm token for %s: %w", id, err)
	}
	return nil
}

func (r *Users) RemoveTokens(ctx context.Context, id string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	values := make([]any, len(tokens))
	for i, t := range tokens {
		values[i] = t
	}
	_, err := r.ref(id).Update(ctx, []firestore.Update{{Path: "fcmTokens", Value: firestore.ArrayRemove(values...)}})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove fcm tokens for %s: %w", id, err)
	}
	return nil
}

func (r *Users) Tokens(ctx context.Context, id string) ([]string, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.FCMTokens, nil
}
