package config

import (
	"encoding/json"
	"fmt"
	"os"

	"inspiranet/internal/constants"
	"inspiranet/internal/models"
	"inspiranet/internal/security"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingDBPath  = models.ConfigError{Message: "missing database path"}
	ErrMissingBlobDir = models.ConfigError{Message: "missing blob root directory"}
)

var validate = validator.New()

// LoadConfig reads the JSON config at path, applies INSPIRANET_* environment
// overrides, fills defaults and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := envconfig.Process(constants.EnvPrefix, &config); err != nil {
		return nil, models.ConfigError{Message: fmt.Sprintf("invalid environment override: %v", err)}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Blob.RootDir == "" {
		return ErrMissingBlobDir
	}

	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return models.ConfigError{Message: fmt.Sprintf("invalid %s: failed '%s' validation", fe.Namespace(), fe.Tag())}
		}
		return models.ConfigError{Message: err.Error()}
	}
	return nil
}

func applyDefaults(c *models.Config) {
	if c.Database.MaxOpenConnections <= 0 {
		c.Database.MaxOpenConnections = constants.DefaultMaxOpenConnections
	}

	if c.Blob.BreakerMaxFailures == 0 {
		c.Blob.BreakerMaxFailures = constants.DefaultBreakerMaxFailures
	}
	if c.Blob.BreakerTimeoutSec <= 0 {
		c.Blob.BreakerTimeoutSec = constants.DefaultBreakerTimeoutSec
	}

	if c.Lifecycle.EveryoneWindowMinutes <= 0 {
		c.Lifecycle.EveryoneWindowMinutes = constants.DefaultEveryoneWindowMinutes
	}
	if c.Lifecycle.MaxGraceRetries <= 0 {
		c.Lifecycle.MaxGraceRetries = constants.DefaultMaxGraceRetries
	}
	if c.Lifecycle.SoftDeleteRetentionDays <= 0 {
		c.Lifecycle.SoftDeleteRetentionDays = constants.DefaultSoftDeleteRetentionDays
	}
	if c.Lifecycle.FanoutLimit <= 0 {
		c.Lifecycle.FanoutLimit = constants.DefaultFanoutLimit
	}
	if len(c.Lifecycle.AutoDeletePresets) == 0 {
		c.Lifecycle.AutoDeletePresets = make(map[string]int, len(constants.DefaultAutoDeletePresets))
		for name, hours := range constants.DefaultAutoDeletePresets {
			c.Lifecycle.AutoDeletePresets[name] = hours
		}
	}

	if c.Scheduler.AutoDeleteIntervalMin <= 0 {
		c.Scheduler.AutoDeleteIntervalMin = constants.DefaultAutoDeleteIntervalMin
	}
	if c.Scheduler.CleanupIntervalHours <= 0 {
		c.Scheduler.CleanupIntervalHours = constants.CleanupSchedulerIntervalHours
	}

	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("INSPIRANET_ENV") == "production"

	if c.Database.EncryptMediaRefs {
		secret := os.Getenv(constants.EncryptionSecretEnv)
		if secret == "" {
			return models.ConfigError{Message: fmt.Sprintf("media reference encryption requires the %s environment variable", constants.EncryptionSecretEnv)}
		}
		if len(secret) < constants.MinEncryptionSecretLength {
			return models.ConfigError{Message: fmt.Sprintf("encryption secret must be at least %d characters long", constants.MinEncryptionSecretLength)}
		}
	}

	if isProduction {
		if !c.Database.EncryptMediaRefs {
			return models.ConfigError{Message: "media reference encryption is required in production (set database.encrypt_media_refs)"}
		}
		if c.LogLevel == "debug" || c.LogLevel == "trace" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else if !c.Database.EncryptMediaRefs {
		fmt.Fprintf(os.Stderr, "WARNING: media references are stored unencrypted. Set database.encrypt_media_refs and %s for at-rest protection.\n", constants.EncryptionSecretEnv)
	}

	return nil
}
