// Package cloudinary implements the image storage provider used by the
// uploads module.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Sentinel errors for the provider.
var (
	ErrNotConfigured = errors.New("image upload is not configured")
	ErrUnavailable   = errors.New("image storage unavailable")
)

// UploadResult is the stored image reference returned by the provider.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Config holds the provider credentials and tuning.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API endpoint, used in tests.
	BaseURL string
	Folder  string
	// RateLimit caps outbound upload requests per second.
	RateLimit float64
	RateBurst int
}

// Client uploads images to the Cloudinary HTTP API using signed requests.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new provider client. A zero-valued config yields a
// client that rejects every upload with ErrNotConfigured.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	if cfg.Folder == "" {
		cfg.Folder = "vehicle-incidents"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.CloudName != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// Upload stores the image and returns its public URL and ID.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	timestamp := time.Now().Unix()
	publicID := fmt.Sprintf("%s/%d_%s", c.cfg.Folder, timestamp, stripExtension(filename))
	signature := c.sign(publicID, timestamp)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}

	fields := map[string]string{
		"api_key":   c.cfg.APIKey,
		"timestamp": fmt.Sprintf("%d", timestamp),
		"folder":    c.cfg.Folder,
		"public_id": publicID,
		"signature": signature,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &UploadResult{URL: parsed.SecureURL, PublicID: parsed.PublicID}, nil
}

// sign computes the request signature over the sorted parameter string.
func (c *Client) sign(publicID string, timestamp int64) string {
	toSign := fmt.Sprintf("folder=%s&public_id=%s&timestamp=%d%s",
		c.cfg.Folder, publicID, timestamp, c.cfg.APISecret)
	sum := sha1.Sum([]byte(toSign))
	return hex.EncodeToString(sum[:])
}

func stripExtension(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}
