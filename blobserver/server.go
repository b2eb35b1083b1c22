package blobserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/config"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP blob service behind blob.HTTPUploader
type Server struct {
	cfg     config.BlobServerConfig
	logger  common.Logger
	router  *gin.Engine
	handler *BlobHandler
}

// NewServer prepares storage and routes; it does not start listening
func NewServer(cfg config.BlobServerConfig, logger common.Logger) (*Server, error) {
	logger = common.LoggerOrNop(logger)
	if cfg.ListenAddr == "" {
		return nil, errors.New("blob server listen address must be set")
	}
	if len(cfg.Credentials) == 0 {
		logger.Warn("Blob server has no client credentials configured; every upload will be rejected")
	}

	storage, err := NewStorage(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = "http://" + cfg.ListenAddr
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  initializeGin(cfg),
		handler: NewBlobHandler(logger, storage, publicURL, cfg.MaxUploadMB<<20),
	}
	s.router.Use(gin.Recovery())
	failures := NewFailureTracker(LockoutSettings{
		Threshold: cfg.LockoutThreshold,
		Window:    time.Duration(cfg.LockoutWindowSeconds) * time.Second,
	})
	setupRoutes(s.router, NewAuthMiddleware(logger, cfg.Credentials, failures), s.handler)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Blob server listening", "address", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("blob server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down blob server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down blob server: %w", err)
	}
	<-errCh
	return nil
}

// setupRoutes configures the HTTP routes
func setupRoutes(router *gin.Engine, authMiddleware *AuthMiddleware, blobHandler *BlobHandler) {
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	api.POST("/blobs", blobHandler.UploadBlob)

	router.GET("/blobs/*key", blobHandler.GetBlob)
	router.HEAD("/blobs/*key", blobHandler.GetBlob)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "blob-server",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
