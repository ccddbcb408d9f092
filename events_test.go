package dietapp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/klipach/dietapp/api"
	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects map[string][]byte

func (f fakeObjects) Put(context.Context, string, string, io.Reader) (int64, error) {
	return 0, errors.New("read only")
}

func (f fakeObjects) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	b, ok := f[objectPath]
	if !ok {
		return nil, files.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f fakeObjects) Delete(context.Context, string) error { return nil }

type fakeImporter struct {
	got []api.DietImport
	err error
}

func (f *fakeImporter) ImportDiet(_ context.Context, in api.DietImport) (*contract.DietUploadResponse, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return &contract.DietUploadResponse{Diet: contract.Diet{ID: "d1"}}, nil
}

func storageEvent(t *testing.T, obj StorageObjectData) event.Event {
	t.Helper()
	e := event.New()
	e.SetID("ev-1")
	e.SetType("google.cloud.storage.object.v1.finalized")
	e.SetSource("//storage.googleapis.com/projects/_/buckets/diet-app")
	require.NoError(t, e.SetData(event.ApplicationJSON, obj))
	return e
}

func TestImportUploadedDiet(t *testing.T) {
	objects := fakeObjects{"diets/uploads/u1/plan.xlsx": []byte("xlsx")}

	tests := []struct {
		name       string
		object     string
		importErr  error
		wantErr    bool
		wantImport bool
	}{
		{name: "imported", object: "diets/uploads/u1/plan.xlsx", wantImport: true},
		{name: "outside prefix", object: "recipes/r1/photo.png"},
		{name: "nested path", object: "diets/uploads/u1/old/plan.xlsx"},
		{name: "not a spreadsheet", object: "diets/uploads/u1/plan.pdf"},
		{name: "missing object", object: "diets/uploads/u2/plan.xlsx", wantErr: true},
		{name: "invalid file acknowledged", object: "diets/uploads/u1/plan.xlsx", importErr: apperr.NewValidation("Plik z dietą jest pusty"), wantImport: true},
		{name: "storage failure retried", object: "diets/uploads/u1/plan.xlsx", importErr: errors.New("unavailable"), wantErr: true, wantImport: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &fakeImporter{err: tt.importErr}
			e := storageEvent(t, StorageObjectData{
				Bucket:      "diet-app",
				Name:        tt.object,
				ContentType: "application/octet-stream",
				Metadata:    map[string]string{"uploadedBy": "admin", "dietName": "Redukcja", "startDate": "2024-05-06"},
			})
			err := importUploadedDiet(t.Context(), "diets/uploads/", objects, imp, e)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if !tt.wantImport {
				assert.Empty(t, imp.got)
				return
			}
			require.Len(t, imp.got, 1)
			assert.Equal(t, api.DietImport{
				UserID:      "u1",
				UploadedBy:  "admin",
				Name:        "Redukcja",
				StartDate:   "2024-05-06",
				FileName:    "plan.xlsx",
				ContentType: "application/octet-stream",
				Data:        []byte("xlsx"),
				StoragePath: "diets/uploads/u1/plan.xlsx",
			}, imp.got[0])
		})
	}
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshStatistics(context.Context) (*contract.AppStatistics, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &contract.AppStatistics{TotalUsers: 3}, nil
}

func TestRefreshStatistics(t *testing.T) {
	e := event.New()
	e.SetID("msg-1")
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub.googleapis.com/projects/diet-app/topics/statistics")
	var msg MessagePublishedData
	msg.Message.MessageID = "m1"
	require.NoError(t, e.SetData(event.ApplicationJSON, msg))

	r := &fakeRefresher{}
	require.NoError(t, refreshStatistics(t.Context(), r, e))
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("firestore unavailable")
	assert.Error(t, refreshStatistics(t.Context(), r, e))
}
