// statsexport copies the statistics/app document into the app_statistics table of PostgreSQL,
// one row per run, so the history can be charted.
//
// STATS_DSN="user=user password=pass dbname=dietapp host=127.0.0.1 port=5432 sslmode=disable" go run ./cmd/statsexport
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/klipach/dietapp/config"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/store"
	_ "github.com/lib/pq"
	"google.golang.org/api/option"
)

const dbDriver = "postgres"

var schema = `
CREATE TABLE IF NOT EXISTS app_statistics (
	id SERIAL PRIMARY KEY,
	generated_at TIMESTAMPTZ NOT NULL,
	exported_at TIMESTAMPTZ NOT NULL,
	total_users INTEGER NOT NULL,
	active_users INTEGER NOT NULL,
	admin_users INTEGER NOT NULL,
	users_by_gender JSONB NOT NULL,
	total_diets INTEGER NOT NULL,
	total_recipes INTEGER NOT NULL,
	pending_users INTEGER NOT NULL,
	total_shopping_lists INTEGER NOT NULL,
	UNIQUE (generated_at)
);`

const insertSnapshot = `
INSERT INTO app_statistics (
	generated_at, exported_at, total_users, active_users, admin_users, users_by_gender,
	total_diets, total_recipes, pending_users, total_shopping_lists
) VALUES (
	:generated_at, :exported_at, :total_users, :active_users, :admin_users, :users_by_gender,
	:total_diets, :total_recipes, :pending_users, :total_shopping_lists
) ON CONFLICT (generated_at) DO NOTHING`

type snapshot struct {
	GeneratedAt        time.Time `db:"generated_at"`
	ExportedAt         time.Time `db:"exported_at"`
	TotalUsers         int       `db:"total_users"`
	ActiveUsers        int       `db:"active_users"`
	AdminUsers         int       `db:"admin_users"`
	UsersByGender      []byte    `db:"users_by_gender"`
	TotalDiets         int       `db:"total_diets"`
	TotalRecipes       int       `db:"total_recipes"`
	PendingUsers       int       `db:"pending_users"`
	TotalShoppingLists int       `db:"total_shopping_lists"`
}

func newSnapshot(st *contract.AppStatistics, now time.Time) (snapshot, error) {
	genders := st.UsersByGender
	if genders == nil {
		genders = map[string]int{}
	}
	raw, err := json.Marshal(genders)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		GeneratedAt:        st.GeneratedAt.UTC(),
		ExportedAt:         now.UTC(),
		TotalUsers:         st.TotalUsers,
		ActiveUsers:        st.ActiveUsers,
		AdminUsers:         st.AdminUsers,
		UsersByGender:      raw,
		TotalDiets:         st.TotalDiets,
		TotalRecipes:       st.TotalRecipes,
		PendingUsers:       st.PendingUsers,
		TotalShoppingLists: st.TotalShoppingLists,
	}, nil
}

func main() {
	ctx := context.Background()
	migrate := flag.Bool("migrate", true, "Create the app_statistics table if missing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.StatsDSN == "" {
		log.Fatalf("STATS_DSN is not set")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("error getting Firestore client: %v", err)
	}
	defer fs.Close()

	st, err := store.New(fs).Statistics().Get(ctx)
	if err != nil {
		log.Fatalf("failed to read statistics: %v", err)
	}

	db, err := sqlx.Connect(dbDriver, cfg.StatsDSN)
	if err != nil {
		log.Fatalf("failed to connect to the database: %v", err)
	}
	defer db.Close()
	if *migrate {
		db.MustExecContext(ctx, schema)
	}

	row, err := newSnapshot(st, time.Now())
	if err != nil {
		log.Fatalf("failed to build snapshot: %v", err)
	}
	res, err := db.NamedExecContext(ctx, insertSnapshot, row)
	if err != nil {
		log.Fatalf("failed to insert snapshot: %v", err)
	}
	n, _ := res.RowsAffected()
	fmt.Printf("exported statistics generated at %s, inserted %d row(s)\n", row.GeneratedAt.Format(time.RFC3339), n)
}
