package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yeti47/eight/common"
)

type SettingsProvider[T any] interface {
	// GetSettings returns the current settings of type T.
	GetSettings() T
}

// StaticSettingsProvider always returns the same settings
type StaticSettingsProvider[T any] struct {
	settings T
}

func NewStaticSettingsProvider[T any](settings T) *StaticSettingsProvider[T] {
	return &StaticSettingsProvider[T]{settings: settings}
}

func (p *StaticSettingsProvider[T]) GetSettings() T {
	return p.settings
}

const defaultReloadDebounce = 500 * time.Millisecond

// FileSettingsProvider serves the configuration file and reloads it when it changes.
// A reload that fails to parse or validate keeps the previous configuration.
type FileSettingsProvider struct {
	path     string
	logger   common.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current Config
	apply   func(*Config)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileSettingsProvider loads path once. apply, if set, is run on every
// loaded configuration before validation (e.g. to re-apply CLI overrides).
func NewFileSettingsProvider(path string, apply func(*Config), logger common.Logger) (*FileSettingsProvider, error) {
	p := &FileSettingsProvider{
		path:     path,
		logger:   common.LoggerOrNop(logger),
		debounce: defaultReloadDebounce,
		apply:    apply,
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// SetLogger replaces the logger; call it before Watch
func (p *FileSettingsProvider) SetLogger(logger common.Logger) {
	p.logger = common.LoggerOrNop(logger)
}

// GetSettings returns a copy of the current configuration
func (p *FileSettingsProvider) GetSettings() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reload re-reads the file and swaps the configuration in if it is valid
func (p *FileSettingsProvider) Reload() error {
	cfg, err := LoadConfig(p.path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if p.apply != nil {
		p.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	p.mu.Lock()
	p.current = *cfg
	p.mu.Unlock()
	return nil
}

// Watch starts reloading on file changes until ctx is done or Close is called.
// The parent directory is watched because atomic saves replace the file.
func (p *FileSettingsProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	p.watcher = watcher
	p.done = make(chan struct{})
	go p.watchLoop(ctx)

	p.logger.Info("Watching config file for changes", "path", p.path)
	return nil
}

func (p *FileSettingsProvider) watchLoop(ctx context.Context) {
	defer close(p.done)

	target := filepath.Clean(p.path)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = p.watcher.Close()
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(p.debounce, func() {
				if err := p.Reload(); err != nil {
					p.logger.Error("Automatic config reload failed", "path", p.path, "error", err)
					return
				}
				p.logger.Info("Configuration reloaded", "path", p.path)
			})

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// Close stops watching and waits for the watch loop to exit
func (p *FileSettingsProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	return err
}
