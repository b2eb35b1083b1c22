package blobserver

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/metrics"
)

// BlobHandler accepts and serves blobs
type BlobHandler struct {
	logger    common.Logger
	storage   *Storage
	publicURL string
	maxBytes  int64
}

func NewBlobHandler(logger common.Logger, storage *Storage, publicURL string, maxBytes int64) *BlobHandler {
	return &BlobHandler{
		logger:    common.LoggerOrNop(logger),
		storage:   storage,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}
}

// UploadBlobRequest represents the expected form data for a blob upload
type UploadBlobRequest struct {
	Key string `form:"key" binding:"required"`
}

// URLFor is the public address a stored key is served from
func (h *BlobHandler) URLFor(key string) string {
	return h.publicURL + "/blobs/" + key
}

// UploadBlob handles POST /api/blobs
func (h *BlobHandler) UploadBlob(c *gin.Context) {
	clientID := c.GetString(clientIDKey)
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	var req UploadBlobRequest
	if err := c.ShouldBind(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
			return
		}
		h.logger.Warn("Invalid form data", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data: " + err.Error()})
		return
	}
	if err := ValidateKey(req.Key); err != nil {
		h.logger.Warn("Rejected blob key", "key", req.Key, "clientID", clientID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Warn("Failed to get uploaded file", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process uploaded file"})
		return
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	head, err := reader.Peek(sniffLength)
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("Failed to read uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	class, format, ok := DetectContent(head)
	if !ok {
		h.logger.Warn("Uploaded file is not a video or image", "key", req.Key, "filename", fileHeader.Filename)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file is not a supported video or image format"})
		return
	}

	size, err := h.storage.Save(req.Key, reader)
	if err != nil {
		h.logger.Error("Failed to store blob", "key", req.Key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store blob"})
		return
	}
	metrics.IncBlobStored(class)

	h.logger.Info("Stored blob", "key", req.Key, "format", format, "size", size, "clientID", clientID)
	c.JSON(http.StatusCreated, gin.H{
		"key": req.Key,
		"url": h.URLFor(req.Key),
	})
}

// GetBlob handles GET /blobs/*key
func (h *BlobHandler) GetBlob(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	p, err := h.storage.Path(key)
	switch {
	case errors.Is(err, ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
		return
	case errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "Blob not found"})
		return
	case err != nil:
		h.logger.Error("Failed to stat blob", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read blob"})
		return
	}
	c.File(p)
}
