// Package resolve turns storage references into fetchable image URLs by
// minting short-lived signed URLs from the Supabase storage API.
package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is the signed URL validity window.
const DefaultTTL = 60 * time.Second

// Client signs storage object paths against a Supabase storage backend.
type Client struct {
	baseURL    string
	serviceKey string
	ttl        time.Duration
	httpClient *http.Client
}

// NewClient builds a signing client for the given Supabase project URL and
// service-role key. ttl <= 0 falls back to DefaultTTL.
func NewClient(baseURL, serviceKey string, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		ttl:        ttl,
		httpClient: http.DefaultClient,
	}
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// SignedURL requests a time-limited signed URL for path within bucket. Any
// backend error is returned to the caller; resolution must succeed.
func (c *Client) SignedURL(ctx context.Context, bucket, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s",
		c.baseURL, bucket, strings.TrimLeft(path, "/"))

	body, err := json.Marshal(signRequest{ExpiresIn: int(c.ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create signed URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read sign response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to create signed URL (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed signResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if parsed.SignedURL == "" {
		return "", fmt.Errorf("storage backend returned an empty signed URL")
	}

	// The storage API returns a path relative to /storage/v1.
	return c.baseURL + "/storage/v1" + "/" + strings.TrimLeft(parsed.SignedURL, "/"), nil
}
