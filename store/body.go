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

type MeasurementFilter struct {
	From  string
	To    string
	Limit int
}

type Measurements struct {
	client *firestore.Client
	now    func() time.Time
}

func (r *Measurements) col(userID string) *firestore.CollectionRef {
	return r.client.Collection(contract.UsersCollection).Doc(userID).Collection(contract.MeasurementsSubcollection)
}

func (r *Measurements) Add(ctx context.Context, m *contract.BodyMeasurements) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	if _, err := r.col(m.UserID).Doc(m.ID).Set(ctx, m); err != nil {
		return fmt.Errorf("add measurement for %s: %w", m.UserID, err)
	}
	return nil
}

// Update replaces an existing measurement.
func (r *Measurements) Update(ctx context.Context, m *contract.BodyMeasurements) error {
	ref := r.col(m.UserID).Doc(m.ID)
	existing, err := getDoc[contract.BodyMeasurements](ctx, ref)
	if err != nil {
		return err
	}
	m.CreatedAt = existing.CreatedAt
	if _, err := ref.Set(ctx, m); err != nil {
		return fmt.Errorf("update measurement %s: %w", m.ID, err)
	}
	return nil
}

func (r *Measurements) Get(ctx context.Context, userID, id string) (*contract.BodyMeasurements, error) {
	return getDoc[contract.BodyMeasurements](ctx, r.col(userID).Doc(id))
}

// List returns measurements newest first, bounded by the optional date range (inclusive).
func (r *Measurements) List(ctx context.Context, userID string, f MeasurementFilter) ([]contract.BodyMeasurements, error) {
	q := r.col(userID).Query
	if f.From != "" {
		q = q.Where("date", ">=", f.From)
	}
	if f.To != "" {
		q = q.Where("date", "<=", f.To)
	}
	q = q.OrderBy("date", firestore.Desc)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return getAll[contract.BodyMeasurements](ctx, q)
}

func (r *Measurements) Delete(ctx context.Context, userID, id string) error {
	return deleteDoc(ctx, r.col(userID).Doc(id))
}

// Water stores one document per day, keyed by the date.
type Water struct {
	client *firestore.Client
	now    func() time.Time
}

func (r *Water) ref(userID, date string) *firestore.DocumentRef {
	return r.client.Collection(contract.UsersCollection).Doc(userID).Collection(contract.WaterSubcollection).Doc(date)
}

// Get returns a zero intake with the given goal for days without entries.
func (r *Water) Get(ctx context.Context, userID, date string, goalMl int) (*contract.WaterIntake, error) {
	w, err := getDoc[contract.WaterIntake](ctx, r.ref(userID, date))
	if errors.Is(err, ErrNotFound) {
		return &contract.WaterIntake{UserID: userID, Date: date, GoalMl: goalMl}, nil
	}
	return w, err
}

// Add changes the day total by deltaMl inside a transaction. The total never drops below zero.
func (r *Water) Add(ctx context.Context, userID, date string, deltaMl, goalMl int) (*contract.WaterIntake, error) {
	ref := r.ref(userID, date)
	var w contract.WaterIntake
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		w = contract.WaterIntake{UserID: userID, Date: date, GoalMl: goalMl}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := snap.DataTo(&w); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}
		w.AmountMl = max(0, w.AmountMl+deltaMl)
		if goalMl > 0 {
			w.GoalMl = goalMl
		}
		w.UpdatedAt = r.now()
		return tx.Set(ref, w)
	})
	if err != nil {
		return nil, fmt.Errorf("add water for %s/%s: %w", userID, date, err)
	}
	return &w, nil
}

func (r *Water) Set(ctx context.Context, w *contract.WaterIntake) error {
	w.UpdatedAt = r.now()
	if _, err := r.ref(w.UserID, w.Date).Set(ctx, w); err != nil {
		return fmt.Errorf("set water for %s/%s: %w", w.UserID, w.Date, err)
	}
	return nil
}
