package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/yeti47/eight/auth"
	"github.com/yeti47/eight/blob"
	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/composition"
	"github.com/yeti47/eight/config"
	"github.com/yeti47/eight/editing"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/media"
	"github.com/yeti47/eight/publishing"
	"github.com/yeti47/eight/store"
	"github.com/yeti47/eight/textrender"
	"github.com/yeti47/eight/thumbnail"
	"github.com/yeti47/eight/uploading"
)

// staleTempAge is how old a leftover temp file must be before startup removes it
const staleTempAge = 24 * time.Hour

// app holds what every command needs: the live configuration, a logger and the temp files
type app struct {
	settings *config.FileSettingsProvider
	logger   common.Logger
	files    *filemanagement.LocalFileTracker
}

// newApp loads the configuration with overrides applied, on load and on every reload
func newApp(name string, overrides config.ConfigOverrides) (*app, error) {
	settings, err := config.NewFileSettingsProvider(flags.configPath, func(c *config.Config) {
		c.Override(overrides)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := settings.GetSettings()

	logger := common.CreateLogger(common.ParseLogLevel(cfg.LogLevel), cfg.LogPath, name, os.Stderr)
	settings.SetLogger(logger)
	logger.Info("Configuration loaded", "path", flags.configPath, "backend", cfg.CaptureBackend,
		"device", cfg.CameraDevice, "tempDir", cfg.TempDir, "serverURL", cfg.ServerURL)

	files := filemanagement.NewLocalFileTracker(cfg.TempDir, logger)
	if err := files.EnsureTempDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &app{settings: settings, logger: logger, files: files}, nil
}

func (a *app) current() config.Config {
	return a.settings.GetSettings()
}

// watchConfig reloads the configuration file on change until ctx ends
func (a *app) watchConfig(ctx context.Context) {
	if err := a.settings.Watch(ctx); err != nil {
		a.logger.Warn("Config file will not be reloaded", "error", err)
	}
}

func (a *app) close() {
	if err := a.settings.Close(); err != nil {
		a.logger.Debug("Config watcher closed with error", "error", err)
	}
}

func (a *app) newEngine() *composition.Engine {
	cfg := a.current()
	renderer := textrender.NewRenderer(a.logger)
	return composition.NewEngine(composition.EngineOptions{
		Prober:      media.NewFFprobe(a.logger),
		Measurer:    renderer,
		Rasterizer:  renderer,
		Codecs:      common.NewFFmpegCodecProvider(a.logger),
		Files:       a.files,
		Settings:    composition.NewEncodeSettingsProvider(a.settings),
		MaxDuration: composition.MaxDuration(cfg),
		Logger:      a.logger,
	})
}

func (a *app) newEditor(onStatus func(editing.Status)) *editing.Editor {
	return editing.NewEditor(editing.Options{
		Demuxer:  media.NewFFmpegDemuxer(a.logger),
		Composer: a.newEngine(),
		Logger:   a.logger,
		OnStatus: onStatus,
	})
}

// newPublishQueue wires the publish flow; the returned database must be closed by the caller
func (a *app) newPublishQueue() (uploading.UploadQueue, *sql.DB, error) {
	cfg := a.current()

	db, err := store.OpenDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	docs, err := store.NewSQLiteDocumentStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create document store: %w", err)
	}

	timeout := time.Duration(cfg.ServerTimeoutSeconds) * time.Second
	publisher := publishing.NewPublisher(publishing.Options{
		Auth:       auth.NewStaticProvider(cfg.UserID),
		Thumbnails: thumbnail.NewFFmpegGenerator(media.NewFFprobe(a.logger), a.files, a.logger),
		Uploader:   blob.NewHTTPUploader(cfg.ServerURL, cfg.ClientID, cfg.ClientSecret, timeout, a.logger),
		Demuxer:    media.NewFFmpegDemuxer(a.logger),
		Videos:     store.NewVideoRepository(docs),
		Files:      a.files,
		Logger:     a.logger,
	})

	queue := uploading.NewUploadQueue(publisher, uploading.QueueOptions{
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.UploadRetries,
		JobTimeout: 2*timeout + time.Minute,
		Logger:     a.logger,
	})
	return queue, db, nil
}
