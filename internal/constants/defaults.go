package constants

// Lifecycle policy defaults
const (
	DefaultEveryoneWindowMinutes   = 15
	DefaultMaxGraceRetries         = 3
	DefaultSoftDeleteRetentionDays = 30
	DefaultFanoutLimit             = 8
	MediaDeletedPlaceholder        = "[Media deleted]"
)

// DefaultAutoDeletePresets maps named auto-delete durations to hours.
var DefaultAutoDeletePresets = map[string]int{
	"24h": 24,
	"7d":  168,
	"90d": 2160,
}

// Scheduler defaults
const (
	DefaultAutoDeleteIntervalMin   = 5
	CleanupSchedulerIntervalHours  = 24
	DefaultBreakerMaxFailures      = 5
	DefaultBreakerTimeoutSec       = 30
	DefaultBreakerHalfOpenMaxCalls = 3
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs         = 1000
	DefaultMaxBackoffMs           = 60000
	DefaultMaxAttempts            = 5
	DefaultDatabaseRetryAttempts  = 3
	DefaultDatabaseRetryBackoffMs = 50
	DefaultDatabaseMaxBackoffMs   = 1000
)

// Default timeout values
const (
	DefaultServerPort            = 8090
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	ServerErrorChannelSize       = 1
)

// Storage defaults
const (
	DefaultMaxOpenConnections   = 1
	DefaultFilePermissions      = 0600
	DefaultDirectoryPermissions = 0750
	EnvPrefix                   = "INSPIRANET"
	EncryptionSecretEnv         = "INSPIRANET_ENCRYPTION_SECRET"
	EncryptionSalt              = "inspiranet-media-ref-v1"
	MinEncryptionSecretLength   = 32
)
