package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// MediaInfo is the provider's answer to a media-id lookup: a transient,
// authenticated download URL plus content metadata.
type MediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
	ID       string `json:"id"`
}

// Client talks to the provider's Graph API for media resolution and download.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	logger     *slog.Logger
}

// NewClient creates a media client. timeout bounds each outbound call; the
// provider's media host being unreachable must not hang an envelope.
func NewClient(log *slog.Logger, baseURL, apiVersion string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: strings.Trim(apiVersion, "/"),
		logger:     log.With(slog.String("client", "whatsapp")),
	}
}

// ResolveMedia looks up a media id and returns its transient download URL.
func (c *Client) ResolveMedia(ctx context.Context, mediaID, accessToken string) (MediaInfo, error) {
	if strings.TrimSpace(mediaID) == "" {
		return MediaInfo{}, fmt.Errorf("media id is required")
	}
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("build media info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("fetch media info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return MediaInfo{}, fmt.Errorf("media info request failed: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info MediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return MediaInfo{}, fmt.Errorf("decode media info: %w", err)
	}
	if strings.TrimSpace(info.URL) == "" {
		return MediaInfo{}, fmt.Errorf("media info response has no url")
	}
	return info, nil
}

// Download fetches the media bytes from a transient URL returned by
// ResolveMedia. The caller must close the returned reader.
func (c *Client) Download(ctx context.Context, url, accessToken string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("media download failed: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
