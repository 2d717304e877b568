// Package ocr defines the text-recognition provider abstraction and its
// implementations. Providers are selected by name at construction time so
// the orchestration layer never branches on vendor specifics.
package ocr

import (
	"context"
	"fmt"
)

// ProviderClova is the only provider currently implemented.
const ProviderClova = "clova"

// Result is the provider-agnostic recognition output: the detected text
// fields joined with newlines, plus the per-field confidence values the
// provider reported (already filtered to plain numbers).
type Result struct {
	RawText     string
	Confidences []float64
}

// Recognizer runs text recognition against an image reachable by URL.
type Recognizer interface {
	Recognize(ctx context.Context, imageURL string) (Result, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string

	// CLOVA settings, required when Provider is "clova".
	ClovaSecretKey  string
	ClovaInvokeURL  string
	ClovaTemplateID string
}

// New constructs the configured Recognizer. An unknown provider name is an
// error rather than a silent fallback.
func New(cfg Config) (Recognizer, error) {
	switch cfg.Provider {
	case ProviderClova:
		return NewClova(cfg.ClovaInvokeURL, cfg.ClovaSecretKey, cfg.ClovaTemplateID)
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %q", cfg.Provider)
	}
}
