package models

// Config holds the application configuration. Any field can be overridden
// from INSPIRANET_<SECTION>_<FIELD> environment variables, for example
// INSPIRANET_DATABASE_PATH.
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Blob      BlobConfig      `json:"blob"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Server    ServerConfig    `json:"server"`
	Tracing   TracingConfig   `json:"tracing"`
	Retry     RetryConfig     `json:"retry"`
	LogLevel  string          `json:"log_level" split_words:"true" validate:"omitempty,oneof=trace debug info warn warning error"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path               string `json:"path" split_words:"true" validate:"required"`
	MaxOpenConnections int    `json:"max_open_connections" split_words:"true" validate:"gte=0"`
	EncryptMediaRefs   bool   `json:"encrypt_media_refs" split_words:"true"`
}

// BlobConfig configures the blob store that holds message media.
type BlobConfig struct {
	RootDir            string `json:"root_dir" split_words:"true" validate:"required"`
	BreakerMaxFailures uint32 `json:"breaker_max_failures" split_words:"true"`
	BreakerTimeoutSec  int    `json:"breaker_timeout_sec" split_words:"true" validate:"gte=0"`
}

// LifecycleConfig tunes the deletion and retention policies.
type LifecycleConfig struct {
	EveryoneWindowMinutes   int            `json:"everyone_window_minutes" split_words:"true" validate:"gte=0"`
	MaxGraceRetries         int            `json:"max_grace_retries" split_words:"true" validate:"gte=0"`
	SoftDeleteRetentionDays int            `json:"soft_delete_retention_days" split_words:"true" validate:"gte=0"`
	FanoutLimit             int            `json:"fanout_limit" split_words:"true" validate:"gte=0"`
	AutoDeletePresets       map[string]int `json:"auto_delete_presets" validate:"dive,keys,required,endkeys,gt=0"`
}

// SchedulerConfig controls the periodic sweeps.
type SchedulerConfig struct {
	AutoDeleteIntervalMin int  `json:"auto_delete_interval_min" split_words:"true" validate:"gte=0"`
	CleanupIntervalHours  int  `json:"cleanup_interval_hours" split_words:"true" validate:"gte=0"`
	DeleteOrphaned        bool `json:"delete_orphaned" split_words:"true"`
}

type ServerConfig struct {
	Port int `json:"port" split_words:"true" validate:"gte=0,lte=65535"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled" split_words:"true"`
	ServiceName    string  `json:"service_name" split_words:"true"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment" split_words:"true"`
	OTLPEndpoint   string  `json:"otlp_endpoint" split_words:"true"`
	SampleRate     float64 `json:"sample_rate" validate:"gte=0,lte=1"`
	UseStdout      bool    `json:"use_stdout" split_words:"true"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs" validate:"gte=0"`
	MaxBackoffMs     int `json:"maxBackoffMs" validate:"gte=0"`
	MaxAttempts      int `json:"maxAttempts" validate:"gte=0"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
