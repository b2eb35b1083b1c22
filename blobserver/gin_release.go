//go:build release

package blobserver

import (
	"github.com/gin-gonic/gin"
	"github.com/yeti47/eight/config"
)

// initializeGin sets up Gin in release mode for production builds
func initializeGin(cfg config.BlobServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// without configured proxies, trust none
	if len(cfg.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(cfg.TrustedProxies)
	} else {
		_ = router.SetTrustedProxies(nil)
	}
	return router
}
