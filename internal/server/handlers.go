package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/runcrew/ingest/internal/pipeline"
)

const recordedAtLayout = "2006-01-02T15:04:05.000Z"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error encoding health response", "error", err)
	}
}

// ingestHandler runs the OCR ingestion pipeline for one uploaded image.
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(payload.ProfileID) == "" {
		s.writeErrorResponse(w, "profileId is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.StoragePath) == "" && payload.ImageURL == "" {
		s.writeErrorResponse(w, "storagePath or imageUrl is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	defer cancel()

	start := time.Now()
	result, err := s.pipeline.Process(ctx, pipeline.Request{
		ProfileID:   payload.ProfileID,
		StoragePath: payload.StoragePath,
		Bucket:      payload.Bucket,
		ImageURL:    payload.ImageURL,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if pipeline.IsClientError(err) {
			status = http.StatusBadRequest
		} else {
			slog.Error("ocr ingest failed", "error", err, "profile_id", payload.ProfileID)
		}
		ingestRequestsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, errorMessage(err), status)
		return
	}

	ingestRequestsTotal.WithLabelValues("success").Inc()
	ingestDuration.Observe(time.Since(start).Seconds())
	ingestTextLength.Observe(float64(len(result.Stored.RawText)))
	if result.Degraded {
		preprocessFallbacks.Inc()
	}

	data := &IngestData{
		ID:                   result.Stored.ID,
		StoragePath:          result.Stored.StoragePath,
		DistanceKm:           result.Stored.DistanceKm,
		DurationSeconds:      result.Stored.DurationSeconds,
		RecordedAt:           formatRecordedAt(result.Stored.RecordedAt),
		Confidence:           result.Stored.Confidence,
		RawText:              result.Stored.RawText,
		PreprocessedImageURL: result.ProcessedURL,
		YoloCrops:            result.Crops,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(IngestResponse{Success: true, Data: data}); err != nil {
		slog.Error("Error encoding ingest response", "error", err)
	}
}

// formatRecordedAt renders the parsed calendar date as ISO-8601 UTC with
// milliseconds, matching what the web app already stores and compares.
func formatRecordedAt(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(recordedAtLayout)
	return &s
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Unexpected error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	return err.Error()
}

// writeErrorResponse writes a JSON error envelope.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := IngestResponse{
		Success: false,
		Error:   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error writing error response", "error", err)
	}
}
