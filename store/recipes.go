package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/contract"
)

type Recipes struct {
	client *firestore.Client
}

func (r *Recipes) col() *firestore.CollectionRef {
	return r.client.Collection(contract.RecipesCollection)
}

func (r *Recipes) Save(ctx context.Context, rec *contract.Recipe) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := r.col().Doc(rec.ID).Set(ctx, rec); err != nil {
		return fmt.Errorf("save recipe %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Recipes) Get(ctx context.Context, id string) (*contract.Recipe, error) {
	return getDoc[contract.Recipe](ctx, r.col().Doc(id))
}

func (r *Recipes) List(ctx context.Context) ([]contract.Recipe, error) {
	return getAll[contract.Recipe](ctx, r.col().OrderBy("name", firestore.Asc))
}

func (r *Recipes) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.col().Doc(id))
}

type PendingUsers struct {
	client *firestore.Client
}

func (r *PendingUsers) col() *firestore.CollectionRef {
	return r.client.Collection(contract.PendingUsersCollection)
}

func (r *PendingUsers) Save(ctx context.Context, p *contract.PendingUser) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := r.col().Doc(p.ID).Set(ctx, p); err != nil {
		return fmt.Errorf("save pending user %s: %w", p.ID, err)
	}
	return nil
}

func (r *PendingUsers) GetByToken(ctx context.Context, token string) (*contract.PendingUser, error) {
	pending, err := getAll[contract.PendingUser](ctx, r.col().Where("token", "==", token).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNotFound
	}
	return &pending[0], nil
}

func (r *PendingUsers) FindByEmail(ctx context.Context, email string) (*contract.PendingUser, error) {
	pending, err := getAll[contract.PendingUser](ctx, r.col().Where("email", "==", email).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNotFound
	}
	return &pending[0], nil
}

func (r *PendingUsers) List(ctx context.Context) ([]contract.PendingUser, error) {
	return getAll[contract.PendingUser](ctx, r.col().OrderBy("createdAt", firestore.Desc))
}

func (r *PendingUsers) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.col().Doc(id))
}

type Statistics struct {
	client *firestore.Client
}

func (r *Statistics) ref() *firestore.DocumentRef {
	return r.client.Collection(contract.StatisticsCollection).Doc(contract.AppStatisticsDoc)
}

func (r *Statistics) Get(ctx context.Context) (*contract.AppStatistics, error) {
	return getDoc[contract.AppStatistics](ctx, r.ref())
}

func (r *Statistics) Save(ctx context.Context, s *contract.AppStatistics) error {
	if _, err := r.ref().Set(ctx, s); err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	return nil
}
