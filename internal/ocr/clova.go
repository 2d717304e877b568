package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clova calls the NAVER CLOVA OCR general/template recognition API.
type Clova struct {
	invokeURL  string
	secretKey  string
	templateID string
	httpClient *http.Client
	now        func() time.Time
}

// NewClova builds a CLOVA recognizer. templateID is optional; when set,
// every call is scoped to that template instead of generic recognition.
func NewClova(invokeURL, secretKey, templateID string) (*Clova, error) {
	if invokeURL == "" {
		return nil, fmt.Errorf("clova: invoke URL is not configured")
	}
	if secretKey == "" {
		return nil, fmt.Errorf("clova: secret key is not configured")
	}
	return &Clova{
		invokeURL:  invokeURL,
		secretKey:  secretKey,
		templateID: templateID,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}, nil
}

type clovaImage struct {
	Format      string   `json:"format"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	TemplateIDs []string `json:"templateIds,omitempty"`
}

type clovaRequest struct {
	Version   string       `json:"version"`
	RequestID string       `json:"requestId"`
	Timestamp int64        `json:"timestamp"`
	Images    []clovaImage `json:"images"`
}

type clovaResponse struct {
	Images []struct {
		InferResult string `json:"inferResult"`
		Message     string `json:"message"`
		Fields      []struct {
			InferText       string   `json:"inferText"`
			InferConfidence *float64 `json:"inferConfidence"`
		} `json:"fields"`
	} `json:"images"`
}

// Recognize sends one image URL to CLOVA and flattens the response. Each
// call carries a fresh request id and the current epoch-millis timestamp.
// A non-2xx response is fatal and carries the status plus body.
func (c *Clova) Recognize(ctx context.Context, imageURL string) (Result, error) {
	img := clovaImage{Format: "jpg", Name: "record", URL: imageURL}
	if c.templateID != "" {
		img.TemplateIDs = []string{c.templateID}
	}

	payload := clovaRequest{
		Version:   "V2",
		RequestID: uuid.NewString(),
		Timestamp: c.now().UnixMilli(),
		Images:    []clovaImage{img},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("clova: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("clova: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("clova: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("clova: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("CLOVA OCR failed (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed clovaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("clova: unmarshal response: %w", err)
	}

	if len(parsed.Images) == 0 || len(parsed.Images[0].Fields) == 0 {
		return Result{}, nil
	}

	texts := make([]string, 0, len(parsed.Images[0].Fields))
	confidences := make([]float64, 0, len(parsed.Images[0].Fields))
	for _, field := range parsed.Images[0].Fields {
		if field.InferText != "" {
			texts = append(texts, field.InferText)
		}
		if field.InferConfidence != nil && !math.IsNaN(*field.InferConfidence) {
			confidences = append(confidences, *field.InferConfidence)
		}
	}

	return Result{
		RawText:     strings.Join(texts, "\n"),
		Confidences: confidences,
	}, nil
}
