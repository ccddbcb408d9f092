package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/klipach/dietapp/contract"
)

// EatenMeals keeps one document per user and day listing the meals marked as eaten.
type EatenMeals struct {
	client *firestore.Client
	now    func() time.Time
}

func (r *EatenMeals) ref(userID, date string) *firestore.DocumentRef {
	return r.client.Collection(contract.EatenMealsCollection).Doc(contract.EatenMealsID(userID, date))
}

// Get returns an empty record when nothing was eaten that day.
func (r *EatenMeals) Get(ctx context.Context, userID, date string) (*contract.EatenMeals, error) {
	em, err := getDoc[contract.EatenMeals](ctx, r.ref(userID, date))
	if errors.Is(err, ErrNotFound) {
		return &contract.EatenMeals{UserID: userID, Date: date, MealIDs: []string{}}, nil
	}
	return em, err
}

func (r *EatenMeals) Save(ctx context.Context, em *contract.EatenMeals) error {
	em.UpdatedAt = r.now()
	if _, err := r.ref(em.UserID, em.Date).Set(ctx, em); err != nil {
		return fmt.Errorf("save eaten meals %s/%s: %w", em.UserID, em.Date, err)
	}
	return nil
}

// Toggle flips a meal in a transaction and returns whether it is now eaten.
func (r *EatenMeals) Toggle(ctx context.Context, userID, date, mealID string) (bool, error) {
	ref := r.ref(userID, date)
	var eaten bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		em := contract.EatenMeals{UserID: userID, Date: date}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := snap.DataTo(&em); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}
		eaten = em.Toggle(mealID)
		em.UpdatedAt = r.now()
		return tx.Set(ref, em)
	})
	if err != nil {
		return false, fmt.Errorf("toggle meal %s for %s/%s: %w", mealID, userID, date, err)
	}
	return eaten, nil
}

func (r *EatenMeals) Delete(ctx context.Context, userID, date string) error {
	return deleteDoc(ctx, r.ref(userID, date))
}

type ShoppingLists struct {
	client *firestore.Client
}

func (r *ShoppingLists) col() *firestore.CollectionRef {
	return r.client.Collection(contract.ShoppingListsCollection)
}

func (r *ShoppingLists) Save(ctx context.Context, l *contract.ShoppingList) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = uuid.NewString()
		}
	}
	if _, err := r.col().Doc(l.ID).Set(ctx, l); err != nil {
		return fmt.Errorf("save shopping list %s: %w", l.ID, err)
	}
	return nil
}

func (r *ShoppingLists) Get(ctx context.Context, id string) (*contract.ShoppingList, error) {
	return getDoc[contract.ShoppingList](ctx, r.col().Doc(id))
}

func (r *ShoppingLists) ListByUser(ctx context.Context, userID string) ([]contract.ShoppingList, error) {
	return getAll[contract.ShoppingList](ctx, r.col().Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc))
}

// SetItemChecked updates one item in a transaction; items are stored inline in the list document.
func (r *ShoppingLists) SetItemChecked(ctx context.Context, listID, itemID string, checked bool) (*contract.ShoppingList, error) {
	ref := r.col().Doc(listID)
	var list contract.ShoppingList
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		list = contract.ShoppingList{}
		if err := snap.DataTo(&list); err != nil {
			return err
		}
		found := false
		for i := range list.Items {
			if list.Items[i].ID == itemID {
				list.Items[i].Checked = checked
				found = true
			}
		}
		if !found {
			return ErrNotFound
		}
		return tx.Set(ref, list)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("check item %s on list %s: %w", itemID, listID, err)
	}
	return &list, nil
}

func (r *ShoppingLists) Delete(ctx context.Context, id string) error {
	return deleteDoc(ctx, r.col().Doc(id))
}
