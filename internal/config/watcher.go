package config

import (
	"context"
	"os"
	"sync"
	"time"

	"inspiranet/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 5 * time.Second
	// settleDelay lets an in-progress write finish before the file is read.
	settleDelay = 100 * time.Millisecond
)

// Change describes one successful reload of the configuration file.
type Change struct {
	Old *models.Config
	New *models.Config
	// Restart names the changed sections that only take effect after a
	// restart.
	Restart []string
}

// LogLevelChanged reports whether the log level differs.
func (c Change) LogLevelChanged() bool {
	return c.Old.LogLevel != c.New.LogLevel
}

// CleanupPolicyChanged reports whether the soft-delete retention or the
// orphan sweep setting differs. Both are applied to the next cleanup run.
func (c Change) CleanupPolicyChanged() bool {
	return c.Old.Lifecycle.SoftDeleteRetentionDays != c.New.Lifecycle.SoftDeleteRetentionDays ||
		c.Old.Scheduler.DeleteOrphaned != c.New.Scheduler.DeleteOrphaned
}

// restartSections lists the sections whose changes the running daemon
// cannot pick up.
func restartSections(old, new *models.Config) []string {
	var sections []string
	if old.Database != new.Database {
		sections = append(sections, "database")
	}
	if old.Blob != new.Blob {
		sections = append(sections, "blob")
	}
	if !lifecycleEqualIgnoringRetention(old.Lifecycle, new.Lifecycle) {
		sections = append(sections, "lifecycle")
	}
	if old.Scheduler.AutoDeleteIntervalMin != new.Scheduler.AutoDeleteIntervalMin ||
		old.Scheduler.CleanupIntervalHours != new.Scheduler.CleanupIntervalHours {
		sections = append(sections, "scheduler")
	}
	if old.Server != new.Server {
		sections = append(sections, "server")
	}
	if old.Tracing != new.Tracing {
		sections = append(sections, "tracing")
	}
	if old.Retry != new.Retry {
		sections = append(sections, "retry")
	}
	return sections
}

func lifecycleEqualIgnoringRetention(a, b models.LifecycleConfig) bool {
	if a.EveryoneWindowMinutes != b.EveryoneWindowMinutes ||
		a.MaxGraceRetries != b.MaxGraceRetries ||
		a.FanoutLimit != b.FanoutLimit ||
		len(a.AutoDeletePresets) != len(b.AutoDeletePresets) {
		return false
	}
	for name, hours := range a.AutoDeletePresets {
		if other, ok := b.AutoDeletePresets[name]; !ok || other != hours {
			return false
		}
	}
	return true
}

// ConfigWatcher polls the configuration file and hands every valid reload
// to the registered handlers. An invalid file is logged and the previous
// configuration stays in effect.
type ConfigWatcher struct {
	configPath   string
	logger       *logrus.Logger
	pollInterval time.Duration

	mu       sync.RWMutex
	config   *models.Config
	handlers []func(Change)
}

func NewConfigWatcher(configPath string, logger *logrus.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath:   configPath,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Start loads the file and polls it until ctx is done. It fails only when
// the initial load fails.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cfg, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}
	stat, err := os.Stat(cw.configPath)
	if err != nil {
		return err
	}

	cw.mu.Lock()
	cw.config = cfg
	cw.mu.Unlock()

	last := fileVersion{modTime: stat.ModTime(), size: stat.Size()}
	cw.logger.WithField("path", cw.configPath).Info("Configuration watcher started")

	ticker := time.NewTicker(cw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return nil
		case <-ticker.C:
			stat, err := os.Stat(cw.configPath)
			if err != nil {
				cw.logger.WithError(err).Error("Failed to stat configuration file")
				continue
			}
			current := fileVersion{modTime: stat.ModTime(), size: stat.Size()}
			if current == last {
				continue
			}
			last = current

			time.Sleep(settleDelay)
			cw.reload()
		}
	}
}

type fileVersion struct {
	modTime time.Time
	size    int64
}

// GetConfig returns the configuration currently in effect.
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// OnConfigChange registers a handler. Handlers run in registration order on
// the watcher goroutine.
func (cw *ConfigWatcher) OnConfigChange(handler func(Change)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.handlers = append(cw.handlers, handler)
}

func (cw *ConfigWatcher) reload() {
	next, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration, keeping the current one")
		return
	}

	cw.mu.Lock()
	prev := cw.config
	cw.config = next
	handlers := append([]func(Change){}, cw.handlers...)
	cw.mu.Unlock()

	if prev == nil {
		return
	}
	change := Change{Old: prev, New: next, Restart: restartSections(prev, next)}
	cw.logChange(change)

	for _, handler := range handlers {
		cw.dispatch(handler, change)
	}
}

func (cw *ConfigWatcher) dispatch(handler func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			cw.logger.WithField("panic", r).Error("Config change handler panicked")
		}
	}()
	handler(change)
}

func (cw *ConfigWatcher) logChange(c Change) {
	entry := cw.logger.WithField("path", cw.configPath)

	if c.LogLevelChanged() {
		entry.WithFields(logrus.Fields{
			"old": c.Old.LogLevel,
			"new": c.New.LogLevel,
		}).Info("Log level changed")
	}
	if c.CleanupPolicyChanged() {
		entry.WithFields(logrus.Fields{
			"old_retention_days": c.Old.Lifecycle.SoftDeleteRetentionDays,
			"new_retention_days": c.New.Lifecycle.SoftDeleteRetentionDays,
			"delete_orphaned":    c.New.Scheduler.DeleteOrphaned,
		}).Info("Cleanup policy changed")
	}
	if len(c.Restart) > 0 {
		entry.WithField("sections", c.Restart).Warn("Configuration changed; restart to apply")
		return
	}
	entry.Info("Configuration reloaded")
}
