// Package store wraps Firestore collections behind narrow repositories.
// Missing documents are reported as ErrNotFound; nothing is retried here.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/klipach/dietapp/contract"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

func New(client *firestore.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) Users() *Users                 { return &Users{client: s.client, now: s.now} }
func (s *Store) Diets() *Diets                 { return &Diets{client: s.client} }
func (s *Store) Files() *Files                 { return &Files{client: s.client} }
func (s *Store) EatenMeals() *EatenMeals       { return &EatenMeals{client: s.client, now: s.now} }
func (s *Store) ShoppingLists() *ShoppingLists { return &ShoppingLists{client: s.client} }
func (s *Store) Measurements() *Measurements   { return &Measurements{client: s.client, now: s.now} }
func (s *Store) Water() *Water                 { return &Water{client: s.client, now: s.now} }
func (s *Store) Recipes() *Recipes             { return &Recipes{client: s.client} }
func (s *Store) PendingUsers() *PendingUsers   { return &PendingUsers{client: s.client} }
func (s *Store) Statistics() *Statistics       { return &Statistics{client: s.client} }

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func getDoc[T any](ctx context.Context, ref *firestore.DocumentRef) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", ref.Path, err)
	}
	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref.Path, err)
	}
	return &v, nil
}

func getAll[T any](ctx context.Context, q firestore.Query) ([]T, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Ref.Path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	// Delete succeeds on missing documents, so check first to report ErrNotFound.
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", ref.Path, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", ref.Path, err)
	}
	return nil
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	switch v := res["all"].(type) {
	case *firestorepb.Value:
		return int(v.GetIntegerValue()), nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("count: unexpected aggregation value %T", v)
	}
}

// deleteQuery removes every document matched by q.
func (s *Store) deleteQuery(ctx context.Context, q firestore.Query) (int, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]writeJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Delete(d.Ref)
		if err != nil {
			bw.End()
			return 0, err
		}
		jobs = append(jobs, job)
	}
	bw.End()
	if err := firstJobError(jobs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// writeJob is the part of *firestore.BulkWriterJob deleteQuery waits on.
type writeJob interface {
	Results() (*firestore.WriteResult, error)
}

// firstJobError blocks until every job is done and returns the first failure.
func firstJobError(jobs []writeJob) error {
	var first error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil && first == nil {
			first = fmt.Errorf("bulk delete: %w", err)
		}
	}
	return first
}

// PurgeUser removes the user document, its subcollections and every top level document owned by the user.
func (s *Store) PurgeUser(ctx context.Context, userID string) (int, error) {
	userRef := s.client.Collection(contract.UsersCollection).Doc(userID)
	total := 0
	queries := []firestore.Query{
		userRef.Collection(contract.MeasurementsSubcollection).Query,
		userRef.Collection(contract.WaterSubcollection).Query,
		s.client.Collection(contract.DietsCollection).Where("userId", "==", userID),
		s.client.Collection(contract.FilesCollection).Where("userId", "==", userID),
		s.client.Collection(contract.EatenMealsCollection).Where("userId", "==", userID),
		s.client.Collection(contract.ShoppingListsCollection).Where("userId", "==", userID),
	}
	for _, q := range queries {
		n, err := s.deleteQuery(ctx, q)
		if err != nil {
			return total, fmt.Errorf("purge user %s: %w", userID, err)
		}
		total += n
	}
	if _, err := userRef.Delete(ctx); err != nil {
		return total, fmt.Errorf("purge user %s: %w", userID, err)
	}
	return total + 1, nil
}

// Counts used by the statistics job.
func (s *Store) CountDiets(ctx context.Context) (int, error) {
	return count(ctx, s.client.Collection(contract.DietsCollection).Query)
}

func (s *Store) CountRecipes(ctx context.Context) (int, error) {
	return count(ctx, s.client.Collection(contract.RecipesCollection).Query)
}

func (s *Store) CountPendingUsers(ctx context.Context) (int, error) {
	return count(ctx, s.client.Collection(contract.PendingUsersCollection).Query)
}

func (s *Store) CountShoppingLists(ctx context.Context) (int, error) {
	return count(ctx, s.client.Collection(contract.ShoppingListsCollection).Query)
}

func (s *Store) ListUsers(ctx context.Context) ([]contract.User, error) {
	return s.Users().List(ctx)
}
