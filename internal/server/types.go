package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/runcrew/ingest/internal/detect"
	"github.com/runcrew/ingest/internal/pipeline"
)

// ingestPipeline defines what the server needs from the OCR pipeline.
type ingestPipeline interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline   ingestPipeline
	corsOrigin string
	timeoutSec int
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	TimeoutSec      int
	ShutdownTimeout int
}

// IngestRequest is the JSON body of an ingestion request.
type IngestRequest struct {
	ProfileID   string `json:"profileId"`
	StoragePath string `json:"storagePath,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// IngestData is the success payload: the stored row plus detection
// diagnostics. Nullable metric fields serialize as JSON null when the
// parser found no match.
type IngestData struct {
	ID                   string        `json:"id"`
	StoragePath          string        `json:"storagePath"`
	DistanceKm           *float64      `json:"distanceKm"`
	DurationSeconds      *int          `json:"durationSeconds"`
	RecordedAt           *string       `json:"recordedAt"`
	Confidence           *float64      `json:"confidence"`
	RawText              string        `json:"rawText"`
	PreprocessedImageURL string        `json:"preprocessedImageUrl"`
	YoloCrops            []detect.Crop `json:"yoloCrops"`
}

// IngestResponse is the uniform JSON envelope for every response.
type IngestResponse struct {
	Success bool        `json:"success"`
	Data    *IngestData `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// NewServer creates an ingest server over an assembled pipeline.
func NewServer(p ingestPipeline, config Config) *Server {
	corsOrigin := config.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	timeoutSec := config.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &Server{
		pipeline:   p,
		corsOrigin: corsOrigin,
		timeoutSec: timeoutSec,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/ocr-ingest", s.corsMiddleware(s.ingestHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) requestTimeout() time.Duration {
	return time.Duration(s.timeoutSec) * time.Second
}
