package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path"
	"strings"
	"time"

	"github.com/yeti47/eight/common"
)

// Uploader stores a local file under key and returns the URL it can be fetched from
type Uploader interface {
	Upload(ctx context.Context, filePath, key string) (string, error)
}

// UploadResponse is the blob server's answer to a successful upload
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// HTTPUploader posts files to the blob server as multipart forms
type HTTPUploader struct {
	serverURL    string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       common.Logger
}

// NewHTTPUploader creates a new blob upload client
func NewHTTPUploader(serverURL, clientID, clientSecret string, timeout time.Duration, logger common.Logger) *HTTPUploader {
	return &HTTPUploader{
		serverURL:    strings.TrimRight(serverURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       common.LoggerOrNop(logger),
	}
}

// Upload streams the file at filePath to POST /api/blobs
func (u *HTTPUploader) Upload(ctx context.Context, filePath, key string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", NewNonRecoverableUploadError(fmt.Errorf("failed to open %s: %w", filePath, err))
	}
	defer file.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)

	go func() {
		err := writeForm(form, file, key)
		if err == nil {
			err = form.Close()
		}
		writer.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.serverURL+"/api/blobs", body)
	if err != nil {
		body.Close()
		return "", NewNonRecoverableUploadError(fmt.Errorf("failed to create request: %w", err))
	}
	req.SetBasicAuth(u.clientID, u.clientSecret)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	body.Close()
	if err != nil {
		if ctx.Err() != nil {
			return "", NewNonRecoverableUploadError(ctx.Err())
		}
		return "", NewRecoverableUploadError(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", newStatusError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", NewNonRecoverableUploadError(fmt.Errorf("failed to decode response: %w", err))
	}
	if out.URL == "" {
		return "", NewNonRecoverableUploadError(fmt.Errorf("blob server returned no url for %s", key))
	}

	u.logger.Debug("Blob uploaded", "key", key, "url", out.URL)
	return out.URL, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeForm(form *multipart.Writer, file io.Reader, key string) error {
	if err := form.WriteField("key", key); err != nil {
		return fmt.Errorf("failed to write key field: %w", err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(path.Base(key))))
	header.Set("Content-Type", common.MimeTypeForPath(key))
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to write file data: %w", err)
	}
	return nil
}
