package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/skillarena/backend/errs"
)

type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     int           `env:"READ_TIMEOUT_SECONDS" envDefault:"180"`
	WriteTimeout    int           `env:"WRITE_TIMEOUT_SECONDS" envDefault:"180"`
	IdleTimeout     int           `env:"IDLE_TIMEOUT_SECONDS" envDefault:"180"`
	AcceptedOrigins []string      `env:"ACCEPTED_ORIGINS" envSeparator:","`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`

	Database Database
	Auth     Auth
	Payments Payments
	Email    Email
	Images   Images
	Search   Search
	Cache    Cache
	Workers  Workers

	// SSMParameterPrefix is read before everything else; see Load.
	SSMParameterPrefix string `env:"SSM_PARAMETER_PREFIX"`
	AWSRegion          string `env:"AWS_REGION"`
}

type Database struct {
	Type         string   `env:"DB_TYPE" envDefault:"postgres"`
	URL          string   `env:"DATABASE_URL"`
	Host         string   `env:"SUPABASE_DB_HOST"`
	User         string   `env:"SUPABASE_DB_USER"`
	Password     string   `env:"SUPABASE_DB_PASSWORD"`
	Name         string   `env:"SUPABASE_DB_NAME"`
	DBPort       string   `env:"SUPABASE_DB_PORT" envDefault:"5432"`
	ReplicaDSNs  []string `env:"DB_REPLICA_DSNS" envSeparator:","`
	MaxRetries   int      `env:"MAX_WRITE_RETRIES" envDefault:"5"`
	GenerateOnly bool     `env:"GENERATE_MODELS"`
	ReportOnly   bool     `env:"GENERATE_COLUMN_REPORT"`
}

// DSN returns the primary connection string for the configured DB_TYPE.
func (d Database) DSN() (string, error) {
	switch d.Type {
	case "supa":
		if d.Host == "" || d.User == "" || d.Name == "" {
			return "", errs.NewEnvironmentVariableError("SUPABASE_DB_HOST, SUPABASE_DB_USER, SUPABASE_DB_NAME")
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			d.Host, d.User, d.Password, d.Name, d.DBPort), nil
	case "postgres", "":
		if d.URL == "" {
			return "", errs.NewEnvironmentVariableError("DATABASE_URL")
		}
		return d.URL, nil
	}
	return "", errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported value %q", d.Type))
}

type Auth struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTTTL          time.Duration `env:"JWT_TTL" envDefault:"168h"`
	BackendPassword string        `env:"BACKEND_PASSWORD"`
}

type Payments struct {
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	Currency        string `env:"PAYMENT_CURRENCY" envDefault:"usd"`
}

type Email struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	FromEmail    string `env:"RESEND_FROM_EMAIL" envDefault:"SkillArena <noreply@skillarena.app>"`
}

type Images struct {
	Bucket        string `env:"IMAGE_BUCKET"`
	PublicBaseURL string `env:"IMAGE_PUBLIC_BASE_URL"`
}

type Search struct {
	ElasticURL string `env:"ELASTIC_URL"`
	Index      string `env:"ELASTIC_INDEX" envDefault:"contests"`
}

type Cache struct {
	RedisURL       string        `env:"REDIS_URL"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"60s"`
}

type Workers struct {
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// New returns the process environment as a map.
func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// Parse builds a Config from environ. Values in defaults are used only for
// keys environ does not set.
func Parse(environ map[string]string, defaults map[string]string) (Config, error) {
	merged := make(map[string]string, len(environ)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range environ {
		merged[k] = v
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: merged}); err != nil {
		return Config{}, errs.NewConfigError("environment", err)
	}
	for i, origin := range cfg.AcceptedOrigins {
		cfg.AcceptedOrigins[i] = strings.TrimSpace(origin)
	}
	return cfg, nil
}

// Validate reports the first setting the service cannot start without.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errs.NewEnvironmentVariableError("JWT_SECRET")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errs.NewConfigError("JWT_SECRET", fmt.Errorf("must be at least 32 bytes"))
	}
	if _, err := c.Database.DSN(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errs.NewConfigError("PORT", fmt.Errorf("out of range: %d", c.Port))
	}
	if c.Workers.OutboxBatchSize <= 0 {
		return errs.NewConfigError("OUTBOX_BATCH_SIZE", fmt.Errorf("must be positive"))
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c Config) ReadTimeoutDuration() time.Duration  { return seconds(c.ReadTimeout) }
func (c Config) WriteTimeoutDuration() time.Duration { return seconds(c.WriteTimeout) }
func (c Config) IdleTimeoutDuration() time.Duration  { return seconds(c.IdleTimeout) }
