// Package detect calls the external region-detection (YOLO) service to crop
// activity screenshots down to the informative stat-card region before OCR.
// Detection is strictly best-effort: every failure degrades to the original
// image and never aborts the request.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Label the detection service assigns to the stat-card region.
const statCardLabel = "stat_card"

// Box is a detected bounding box in image pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Crop is one detected region. URL points at the cropped image when the
// service materialized one.
type Crop struct {
	Label      string   `json:"label"`
	URL        string   `json:"url,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Box        *Box     `json:"box,omitempty"`
}

// Result is the preprocessing outcome. URL is always usable downstream:
// either a crop URL or the original image URL. Degraded is set when the
// detection call failed or produced nothing useful.
type Result struct {
	URL      string
	Crops    []Crop
	Degraded bool
}

// Preprocessor crops images via a remote detection endpoint. A zero-value
// endpoint disables detection entirely (pass-through).
type Preprocessor struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewPreprocessor builds a Preprocessor. endpoint may be empty, which turns
// Preprocess into a pass-through.
func NewPreprocessor(endpoint, apiKey string, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
}

// Enabled reports whether a detection endpoint is configured.
func (p *Preprocessor) Enabled() bool { return p.endpoint != "" }

type detectRequest struct {
	ImageURL string `json:"imageUrl"`
}

type detectResponse struct {
	Success bool   `json:"success"`
	Crops   []Crop `json:"crops"`
	Error   string `json:"error"`
}

// Preprocess resolves the working image URL for OCR. It never returns an
// error: detection failures are logged and reported via Result.Degraded
// with the original URL carried through.
func (p *Preprocessor) Preprocess(ctx context.Context, imageURL string) Result {
	if !p.Enabled() {
		return Result{URL: imageURL}
	}

	resp, err := p.detect(ctx, imageURL)
	if err != nil {
		p.logger.Error("region detection failed, using original image", "error", err)
		return Result{URL: imageURL, Degraded: true}
	}

	if !resp.Success || len(resp.Crops) == 0 {
		p.logger.Warn("region detection returned no crops", "error", resp.Error)
		return Result{URL: imageURL, Crops: resp.Crops, Degraded: true}
	}

	preferred := resp.Crops[0]
	for _, crop := range resp.Crops {
		if strings.EqualFold(crop.Label, statCardLabel) {
			preferred = crop
			break
		}
	}

	if preferred.URL == "" {
		return Result{URL: imageURL, Crops: resp.Crops}
	}
	return Result{URL: preferred.URL, Crops: resp.Crops}
}

func (p *Preprocessor) detect(ctx context.Context, imageURL string) (*detectResponse, error) {
	body, err := json.Marshal(detectRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection service returned %d: %s", resp.StatusCode, string(text))
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}
