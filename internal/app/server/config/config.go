package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env       string
	DB        db
	Server    server
	Logger    logger
	Crypto    crypto
	Queue     queue
	Import    importer
	Heartbeat heartbeat
	Push      push
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress     string   `env:"RUN_ADDRESS"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
	SchedulerToken string   `env:"SCHEDULER_TOKEN"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type crypto struct {
	Passphrase string `env:"CREDENTIAL_PASSPHRASE"`
}

type queue struct {
	BatchSize     int           `env:"QUEUE_BATCH_SIZE"`
	MaxAttempts   int           `env:"QUEUE_MAX_ATTEMPTS"`
	BackoffBase   time.Duration `env:"QUEUE_BACKOFF_BASE"`
	BackoffCap    time.Duration `env:"QUEUE_BACKOFF_CAP"`
	CallDelay     time.Duration `env:"QUEUE_CALL_DELAY"`
	TickInterval  time.Duration `env:"QUEUE_TICK_INTERVAL"`
	RetentionDays int           `env:"QUEUE_RETENTION_DAYS"`
}

type importer struct {
	PageSize         int           `env:"IMPORT_PAGE_SIZE"`
	ChunkedThreshold int           `env:"IMPORT_CHUNKED_THRESHOLD"`
	TimeBudget       time.Duration `env:"IMPORT_TIME_BUDGET"`
	StuckAfter       time.Duration `env:"IMPORT_STUCK_AFTER"`
}

type heartbeat struct {
	Interval       time.Duration `env:"HEARTBEAT_INTERVAL"`
	FailureCeiling int           `env:"HEARTBEAT_FAILURE_CEILING"`
	TickInterval   time.Duration `env:"HEARTBEAT_TICK_INTERVAL"`
}

type push struct {
	MaxIDs         int           `env:"PUSH_MAX_IDS"`
	RatePerMinute  int           `env:"PUSH_RATE_PER_MINUTE"`
	ConflictWindow time.Duration `env:"PUSH_CONFLICT_WINDOW"`
}

// MustLoad reads the environment (optionally seeded from a .env file) and
// returns the server configuration with defaults applied.
func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()

	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("app_env", EnvProd)
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("queue_batch_size", 25)
	viper.SetDefault("queue_max_attempts", 3)
	viper.SetDefault("queue_backoff_base", "1s")
	viper.SetDefault("queue_backoff_cap", "300s")
	viper.SetDefault("queue_call_delay", "500ms")
	viper.SetDefault("queue_tick_interval", "1m")
	viper.SetDefault("queue_retention_days", 30)
	viper.SetDefault("import_page_size", 50)
	viper.SetDefault("import_chunked_threshold", 100)
	viper.SetDefault("import_time_budget", "50s")
	viper.SetDefault("import_stuck_after", "10m")
	viper.SetDefault("heartbeat_interval", "15m")
	viper.SetDefault("heartbeat_failure_ceiling", 5)
	viper.SetDefault("heartbeat_tick_interval", "5m")
	viper.SetDefault("push_max_ids", 20)
	viper.SetDefault("push_rate_per_minute", 10)
	viper.SetDefault("push_conflict_window", "4h")

	config := Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: server{
			RunAddress:     viper.GetString("run_address"),
			AllowedOrigins: splitOrigins(viper.GetString("allowed_origins")),
			SchedulerToken: viper.GetString("scheduler_token"),
		},
		Logger: logger{LogLevel: viper.GetString("log_level")},
		Crypto: crypto{Passphrase: viper.GetString("credential_passphrase")},
		Queue: queue{
			BatchSize:     viper.GetInt("queue_batch_size"),
			MaxAttempts:   viper.GetInt("queue_max_attempts"),
			BackoffBase:   viper.GetDuration("queue_backoff_base"),
			BackoffCap:    viper.GetDuration("queue_backoff_cap"),
			CallDelay:     viper.GetDuration("queue_call_delay"),
			TickInterval:  viper.GetDuration("queue_tick_interval"),
			RetentionDays: viper.GetInt("queue_retention_days"),
		},
		Import: importer{
			PageSize:         viper.GetInt("import_page_size"),
			ChunkedThreshold: viper.GetInt("import_chunked_threshold"),
			TimeBudget:       viper.GetDuration("import_time_budget"),
			StuckAfter:       viper.GetDuration("import_stuck_after"),
		},
		Heartbeat: heartbeat{
			Interval:       viper.GetDuration("heartbeat_interval"),
			FailureCeiling: viper.GetInt("heartbeat_failure_ceiling"),
			TickInterval:   viper.GetDuration("heartbeat_tick_interval"),
		},
		Push: push{
			MaxIDs:         viper.GetInt("push_max_ids"),
			RatePerMinute:  viper.GetInt("push_rate_per_minute"),
			ConflictWindow: viper.GetDuration("push_conflict_window"),
		},
	}

	return &config
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
