package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
)

var ErrNotFound = errors.New("file not found")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)

// Store is the subset of object storage the backend needs.
type Store interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
}

// BucketStore keeps objects in a Cloud Storage bucket, normally the Firebase default bucket.
type BucketStore struct {
	bucket *storage.BucketHandle
}

func NewBucketStore(bucket *storage.BucketHandle) *BucketStore {
	return &BucketStore{bucket: bucket}
}

func (s *BucketStore) Put(ctx context.Context, objectPath, contentType string, r io.Reader) (int64, error) {
	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", objectPath, err)
	}
	return n, nil
}

func (s *BucketStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	rc, err := s.bucket.Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", objectPath, err)
	}
	return rc, nil
}

func (s *BucketStore) Delete(ctx context.Context, objectPath string) error {
	if err := s.bucket.Object(objectPath).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return nil
}

// SafeName strips directories and characters that don't belong in object names.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		return "file"
	}
	return name
}

func DietPlanPath(userID, fileID, fileName string) string {
	return path.Join("diets", userID, fileID, SafeName(fileName))
}

func RecipeImagePath(recipeID, fileName string) string {
	return path.Join("recipes", recipeID, SafeName(fileName))
}

// PublicURL is the Firebase download URL pattern for an object.
func PublicURL(bucket, objectPath string) string {
	return "https://firebasestorage.googleapis.com/v0/b/" + bucket + "/o/" + strings.ReplaceAll(objectPath, "/", "%2F") + "?alt=media"
}

// UserIDFromUploadPath extracts the user id from prefix/{userId}/{fileName}.
func UserIDFromUploadPath(prefix, objectPath string) (string, string, bool) {
	rest, ok := strings.CutPrefix(objectPath, prefix)
	if !ok {
		return "", "", false
	}
	userID, fileName, ok := strings.Cut(rest, "/")
	if !ok || userID == "" || fileName == "" || strings.Contains(fileName, "/") {
		return "", "", false
	}
	return userID, fileName, true
}
