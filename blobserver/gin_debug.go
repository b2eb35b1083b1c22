//go:build !release

package blobserver

import (
	"github.com/gin-gonic/gin"
	"github.com/yeti47/eight/config"
)

// initializeGin sets up Gin in debug mode for development builds
func initializeGin(_ config.BlobServerConfig) *gin.Engine {
	return gin.New()
}
