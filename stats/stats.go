// Package stats computes the application statistics shown on the admin dashboard.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/klipach/dietapp/contract"
)

// Source is implemented by *store.Store.
type Source interface {
	ListUsers(ctx context.Context) ([]contract.User, error)
	CountDiets(ctx context.Context) (int, error)
	CountRecipes(ctx context.Context) (int, error)
	CountPendingUsers(ctx context.Context) (int, error)
	CountShoppingLists(ctx context.Context) (int, error)
}

// Compute counts users by role and gender and the documents of every other collection.
// A user is active when lastActiveAt falls within window before now.
func Compute(ctx context.Context, src Source, now time.Time, window time.Duration) (*contract.AppStatistics, error) {
	users, err := src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s := &contract.AppStatistics{
		TotalUsers: len(users),
		UsersByGender: map[string]int{
			string(contract.GenderMale):   0,
			string(contract.GenderFemale): 0,
			string(contract.GenderOther):  0,
		},
		GeneratedAt: now,
	}
	activeSince := now.Add(-window)
	for _, u := range users {
		u.Normalize()
		s.UsersByGender[string(u.Gender)]++
		if u.Role == contract.RoleAdmin {
			s.AdminUsers++
		}
		if !u.LastActiveAt.IsZero() && u.LastActiveAt.After(activeSince) {
			s.ActiveUsers++
		}
	}

	for _, c := range []struct {
		name  string
		count func(context.Context) (int, error)
		dst   *int
	}{
		{"diets", src.CountDiets, &s.TotalDiets},
		{"recipes", src.CountRecipes, &s.TotalRecipes},
		{"pending users", src.CountPendingUsers, &s.PendingUsers},
		{"shopping lists", src.CountShoppingLists, &s.TotalShoppingLists},
	} {
		n, err := c.count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = n
	}
	return s, nil
}
