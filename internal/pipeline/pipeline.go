// Package pipeline orchestrates OCR ingestion: resolve the image, crop it
// to the stat-card region, recognize text, parse metrics, store the result.
// Stages run strictly in sequence; each request is independent and
// stateless apart from the persistent store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/runcrew/ingest/internal/detect"
	"github.com/runcrew/ingest/internal/parse"
	"github.com/runcrew/ingest/internal/store"
)

// Deps are the stage implementations a Pipeline is assembled from.
type Deps struct {
	Signer        URLSigner
	Preprocessor  Preprocessor
	Recognizer    Recognizer
	Store         ResultStore
	DefaultBucket string
	Logger        *slog.Logger
}

// Pipeline executes the ingestion stages for one request at a time.
type Pipeline struct {
	signer        URLSigner
	preprocessor  Preprocessor
	recognizer    Recognizer
	store         ResultStore
	defaultBucket string
	logger        *slog.Logger
}

// New assembles a Pipeline from its stage dependencies.
func New(deps Deps) (*Pipeline, error) {
	if deps.Signer == nil {
		return nil, fmt.Errorf("pipeline: URL signer is required")
	}
	if deps.Recognizer == nil {
		return nil, fmt.Errorf("pipeline: recognizer is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline: result store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		signer:        deps.Signer,
		preprocessor:  deps.Preprocessor,
		recognizer:    deps.Recognizer,
		store:         deps.Store,
		defaultBucket: deps.DefaultBucket,
		logger:        logger,
	}, nil
}

// Process runs the full ingestion sequence. Only preprocessing degrades
// gracefully; a failure in any other stage aborts the request. The row is
// written only after recognition and parsing succeeded in full.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	req.ProfileID = strings.TrimSpace(req.ProfileID)
	req.StoragePath = strings.TrimSpace(req.StoragePath)
	if req.ProfileID == "" {
		return nil, ErrMissingProfileID
	}
	if req.StoragePath == "" && req.ImageURL == "" {
		return nil, ErrMissingImageRef
	}

	bucket := strings.TrimSpace(req.Bucket)
	if bucket == "" {
		bucket = p.defaultBucket
	}

	imageURL, err := p.resolveImageURL(ctx, req.StoragePath, bucket, req.ImageURL)
	if err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, ErrUnresolvableImage
	}

	pre := p.preprocess(ctx, imageURL)
	if pre.Degraded {
		p.logger.Warn("preprocessing degraded, continuing with original image",
			"profile_id", req.ProfileID, "storage_path", req.StoragePath)
	}

	recognized, err := p.recognizer.Recognize(ctx, pre.URL)
	if err != nil {
		return nil, err
	}

	metrics := parse.Parse(recognized.RawText, recognized.Confidences)

	// Caller-supplied URLs have no storage path; the resolved URL then
	// doubles as the idempotency key.
	key := req.StoragePath
	if key == "" {
		key = imageURL
	}

	stored, err := p.store.Upsert(ctx, store.OcrResult{
		ProfileID:       req.ProfileID,
		StoragePath:     key,
		RawText:         metrics.RawText,
		DistanceKm:      metrics.DistanceKm,
		DurationSeconds: metrics.DurationSeconds,
		RecordedAt:      metrics.RecordedAt,
		Confidence:      metrics.Confidence,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Stored:       stored,
		ProcessedURL: pre.URL,
		Crops:        pre.Crops,
		Degraded:     pre.Degraded,
	}, nil
}

func (p *Pipeline) resolveImageURL(ctx context.Context, storagePath, bucket, fallbackURL string) (string, error) {
	if storagePath != "" {
		signed, err := p.signer.SignedURL(ctx, bucket, storagePath)
		if err != nil {
			return "", fmt.Errorf("failed to create signed URL: %w", err)
		}
		return signed, nil
	}
	return fallbackURL, nil
}

func (p *Pipeline) preprocess(ctx context.Context, imageURL string) detect.Result {
	if p.preprocessor == nil {
		return detect.Result{URL: imageURL}
	}
	return p.preprocessor.Preprocess(ctx, imageURL)
}
