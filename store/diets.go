package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/contract"
)

type Diets struct {
	client *firestore.Client
}

func (r *Diets) col() *firestore.CollectionRef {
	return r.client.Collection(contract.DietsCollection)
}

func (r *Diets) Save(ctx context.Context, d *contract.Diet) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, err := r.col().Doc(d.ID).Set(ctx, d); err != nil {
		return fmt.Errorf("save diet %s: %w", d.ID, err)
	}
	return nil
}

func (r *Diets) Get(ctx context.Context, id string) (*contract.Diet, error) {
	return getDoc[contract.Diet](ctx, r.col().Doc(id))
}

// ListByUser returns diets newest first.
func (r *Diets) ListByUser(ctx context.Context, userID string) ([]contract.Diet, error) {
	return getAll[contract.Diet](ctx, r.col().Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc))
}

func (r *Diets) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.col().Doc(id))
}

type Files struct {
	client *firestore.Client
}

func (r *Files) col() *firestore.CollectionRef {
	return r.client.Collection(contract.FilesCollection)
}

func (r *Files) Save(ctx context.Context, f *contract.DietFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if _, err := r.col().Doc(f.ID).Set(ctx, f); err != nil {
		return fmt.Errorf("save file %s: %w", f.ID, err)
	}
	return nil
}

func (r *Files) Get(ctx context.Context, id string) (*contract.DietFile, error) {
	return getDoc[contract.DietFile](ctx, r.col().Doc(id))
}

func (r *Files) ListByUser(ctx context.Context, userID string) ([]contract.DietFile, error) {
	return getAll[contract.DietFile](ctx, r.col().Where("userId", "==", userID).OrderBy("uploadedAt", firestore.Desc))
}

func (r *Files) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.col().Doc(id))
}
