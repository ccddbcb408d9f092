package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ProjectID          string        `mapstructure:"PROJECT_ID"`
	StorageBucket      string        `mapstructure:"STORAGE_BUCKET"`
	CredentialsJSON    string        `mapstructure:"FIREBASE_CREDENTIALS_JSON"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	AllowedOrigins     []string      `mapstructure:"ALLOWED_ORIGINS"`
	InvitationTTL      time.Duration `mapstructure:"INVITATION_TTL"`
	InvitationBaseURL  string        `mapstructure:"INVITATION_BASE_URL"`
	ActiveUserWindow   time.Duration `mapstructure:"ACTIVE_USER_WINDOW"`
	DefaultWaterGoalMl int           `mapstructure:"DEFAULT_WATER_GOAL_ML"`
	AlertDuration      time.Duration `mapstructure:"ALERT_DURATION"`
	MaxUploadBytes     int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	StatsDSN           string        `mapstructure:"STATS_DSN"`
	DietUploadPrefix   string        `mapstructure:"DIET_UPLOAD_PREFIX"`
}

var keys = []string{
	"PROJECT_ID",
	"STORAGE_BUCKET",
	"FIREBASE_CREDENTIALS_JSON",
	"LOG_LEVEL",
	"ALLOWED_ORIGINS",
	"INVITATION_TTL",
	"INVITATION_BASE_URL",
	"ACTIVE_USER_WINDOW",
	"DEFAULT_WATER_GOAL_ML",
	"ALERT_DURATION",
	"MAX_UPLOAD_BYTES",
	"STATS_DSN",
	"DIET_UPLOAD_PREFIX",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("INVITATION_TTL", 72*time.Hour)
	v.SetDefault("INVITATION_BASE_URL", "http://localhost:3000/invitations")
	v.SetDefault("ACTIVE_USER_WINDOW", 30*24*time.Hour)
	v.SetDefault("DEFAULT_WATER_GOAL_ML", 2000)
	v.SetDefault("ALERT_DURATION", 3*time.Second)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("DIET_UPLOAD_PREFIX", "diets/uploads/")
}

// Load reads .env (if present), an optional config.yaml and the environment, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)
	v.AutomaticEnv()
	for _, k := range keys {
		// Unmarshal only sees env values for keys viper knows about.
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.DefaultWaterGoalMl <= 0 {
		return fmt.Errorf("DEFAULT_WATER_GOAL_ML must be positive, got %d", c.DefaultWaterGoalMl)
	}
	if c.InvitationTTL <= 0 {
		return fmt.Errorf("INVITATION_TTL must be positive, got %s", c.InvitationTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// ResolveProjectID falls back to the metadata server when PROJECT_ID is not configured.
func (c *Config) ResolveProjectID(ctx context.Context) (string, error) {
	if c.ProjectID != "" {
		return c.ProjectID, nil
	}
	if !metadata.OnGCE() {
		return "", fmt.Errorf("PROJECT_ID is not set and metadata server is unavailable")
	}
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("get project ID from metadata: %w", err)
	}
	c.ProjectID = projectID
	return projectID, nil
}

// env values arrive as one comma separated string
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
