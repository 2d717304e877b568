package pipeline

import (
	"context"

	"github.com/runcrew/ingest/internal/detect"
	"github.com/runcrew/ingest/internal/ocr"
	"github.com/runcrew/ingest/internal/store"
)

// Request is one validated ingestion request. ProfileID is required; at
// least one of StoragePath and ImageURL must be set. Bucket falls back to
// the configured default when empty.
type Request struct {
	ProfileID   string
	StoragePath string
	Bucket      string
	ImageURL    string
}

// Result is the full pipeline outcome returned to the caller: the stored
// row plus detection diagnostics that are never persisted.
type Result struct {
	Stored       store.OcrResult
	ProcessedURL string
	Crops        []detect.Crop
	Degraded     bool
}

// URLSigner mints short-lived signed URLs for storage objects.
type URLSigner interface {
	SignedURL(ctx context.Context, bucket, path string) (string, error)
}

// Preprocessor isolates the informative image region. It cannot fail; a
// degraded result carries the original URL through.
type Preprocessor interface {
	Preprocess(ctx context.Context, imageURL string) detect.Result
}

// ResultStore upserts parsed results keyed by storage path.
type ResultStore interface {
	Upsert(ctx context.Context, row store.OcrResult) (store.OcrResult, error)
}

// Recognizer runs text recognition; see the ocr package.
type Recognizer = ocr.Recognizer
