// Package preferences keeps local settings of the admin CLI in a sqlite file.
package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klipach/dietapp/contract"
	_ "modernc.org/sqlite"
)

const (
	KeyToken     = "auth.token"
	KeyAPIURL    = "api.url"
	KeyDashboard = "dashboard.config"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the preference file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create preferences dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create preferences table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// DefaultPath is $XDG_CONFIG_HOME/dietctl/preferences.db or its OS equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "dietctl", "preferences.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", fmt.Errorf("preference key is required")
	}
	return key, nil
}

// Get reports whether key is set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}
	var value string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO preferences(key, value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference %q: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// DashboardConfig returns the saved dashboard layout, or the default one when nothing is saved.
func (s *Store) DashboardConfig(ctx context.Context) (contract.DashboardConfig, error) {
	raw, ok, err := s.Get(ctx, KeyDashboard)
	if err != nil || !ok {
		return contract.DefaultDashboardConfig(), err
	}
	var cfg contract.DashboardConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return contract.DefaultDashboardConfig(), fmt.Errorf("decode dashboard config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SaveDashboardConfig(ctx context.Context, cfg contract.DashboardConfig) error {
	cfg.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode dashboard config: %w", err)
	}
	return s.Set(ctx, KeyDashboard, string(raw))
}
