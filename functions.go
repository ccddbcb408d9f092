// Package dietapp registers the Cloud Functions of the diet app backend.
package dietapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	_ "time/tzdata"

	firebase "firebase.google.com/go/v4"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/klipach/dietapp/api"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/config"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/files"
	"github.com/klipach/dietapp/log"
	"github.com/klipach/dietapp/logger"
	"github.com/klipach/dietapp/push"
	"github.com/klipach/dietapp/store"
	"google.golang.org/api/option"
)

const gcloudFuncSourceDir = "serverless_function_source_code"

type app struct {
	cfg     *config.Config
	server  *api.Server
	router  http.Handler
	objects files.Store
}

var (
	appOnce sync.Once
	theApp  *app
	appErr  error
)

func init() {
	functions.HTTP("Api", Api)
	functions.CloudEvent("OnDietFileUploaded", OnDietFileUploaded)
	functions.CloudEvent("RefreshStatistics", RefreshStatistics)
	fixDir()
}

// in GCP Functions, source code is placed in a directory named "serverless_function_source_code"
// need to change the dir to get access to config.yaml
func fixDir() {
	fileInfo, err := os.Stat(gcloudFuncSourceDir)
	if err == nil && fileInfo.IsDir() {
		_ = os.Chdir(gcloudFuncSourceDir)
	}
}

// getApp builds the clients once per instance. They outlive the request, so ctx is not used for them.
func getApp() (*app, error) {
	appOnce.Do(func() {
		theApp, appErr = newApp(context.Background())
	})
	return theApp, appErr
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	l := log.LoggerFromContext(ctx)

	projectID, err := cfg.ResolveProjectID(ctx)
	if err != nil {
		// firebase falls back to the project of the credentials
		l.Warn("project id not resolved", slog.String(log.ErrorMsgLogField, err.Error()))
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	fb, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID, StorageBucket: cfg.StorageBucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	fs, err := fb.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	authClient, err := fb.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth client: %w", err)
	}
	messagingClient, err := fb.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	storageClient, err := fb.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("default bucket: %w", err)
	}

	st := store.New(fs)
	users := st.Users()
	objects := files.NewBucketStore(bucket)

	bus := eventbus.New()
	push.Subscribe(bus, push.NewNotifier(users, messagingClient))
	logger.Subscribe(bus, logger.New(ctx, projectID))

	server := api.NewServer(api.Deps{
		Config:        cfg,
		Auth:          auth.New(authClient, users),
		Accounts:      authClient,
		Users:         users,
		Diets:         st.Diets(),
		DietFiles:     st.Files(),
		EatenMeals:    st.EatenMeals(),
		ShoppingLists: st.ShoppingLists(),
		Measurements:  st.Measurements(),
		Water:         st.Water(),
		Recipes:       st.Recipes(),
		Invitations:   st.PendingUsers(),
		Statistics:    st.Statistics(),
		StatsSource:   st,
		Purger:        st,
		Objects:       objects,
		Bus:           bus,
	})
	return &app{cfg: cfg, server: server, router: server.Router(), objects: objects}, nil
}

// Api serves the REST API of the mobile apps and the admin panel.
func Api(w http.ResponseWriter, r *http.Request) {
	a, err := getApp()
	if err != nil {
		log.LoggerFromContext(r.Context()).Error("error while initializing", slog.String(log.ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.router.ServeHTTP(w, r)
}

// OnDietFileUploaded imports diet plans uploaded by the admin panel straight to the bucket.
func OnDietFileUploaded(ctx context.Context, e event.Event) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	return importUploadedDiet(ctx, a.cfg.DietUploadPrefix, a.objects, a.server, e)
}

// RefreshStatistics recomputes statistics/app, triggered by a scheduled Pub/Sub message.
func RefreshStatistics(ctx context.Context, e event.Event) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	return refreshStatistics(ctx, a.server, e)
}
