package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tasks     TasksConfig     `mapstructure:"tasks"     validate:"required"`
	Caches    CachesConfig    `mapstructure:"caches"    validate:"required"`
	Playbooks PlaybooksConfig `mapstructure:"playbooks"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains authentication settings. An empty JWT secret disables
// authentication entirely (local-dev mode); when set it must be long enough
// for HS256 signing to be meaningful.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=0"`
}

// DatabaseConfig contains telemetry database settings. An empty URL disables
// telemetry persistence; lifecycle events are then discarded.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// Enabled reports whether a telemetry database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// TasksConfig contains background task execution settings.
type TasksConfig struct {
	WorkerCount    int           `mapstructure:"worker_count"    validate:"required,gte=1"`
	RetentionHours int           `mapstructure:"retention_hours" validate:"required,gte=1"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"  validate:"required"`
}

// Retention returns the task retention window as a duration.
func (c TasksConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// CachesConfig holds the default TTL for each named cache instance. LLM
// responses expire quickly; schemas and generated playbooks are stable and
// live much longer.
type CachesConfig struct {
	SchemaTTL   time.Duration `mapstructure:"schema_ttl"   validate:"required"`
	LLMTTL      time.Duration `mapstructure:"llm_ttl"      validate:"required"`
	PlaybookTTL time.Duration `mapstructure:"playbook_ttl" validate:"required"`
}

// PlaybooksConfig contains paths and binaries for playbook operations.
type PlaybooksConfig struct {
	Dir       string `mapstructure:"dir"`
	SchemaDir string `mapstructure:"schema_dir"`
	LintBin   string `mapstructure:"lint_bin"`
	TestBin   string `mapstructure:"test_bin"`
}
