// Package store persists parsed OCR results in Postgres. One table, one
// natural key: storage_path. Re-ingesting the same path replaces the row.
package store

import (
	"context"
	"fmt"
	"time"
)

// OcrResult is the persisted row for one ingested screenshot.
type OcrResult struct {
	ID              string
	ProfileID       string
	StoragePath     string
	RawText         string
	DistanceKm      *float64
	DurationSeconds *int
	RecordedAt      *time.Time
	Confidence      *float64
	UpdatedAt       time.Time
}

// OcrResultRepo reads and writes record_ocr_results rows.
type OcrResultRepo struct {
	db  *DB
	now func() time.Time
}

// NewOcrResultRepo builds a repo over the shared pool.
func NewOcrResultRepo(db *DB) *OcrResultRepo {
	return &OcrResultRepo{db: db, now: time.Now}
}

// Upsert inserts or fully replaces the row keyed by storage_path and
// returns the stored row. updated_at is set to the current time on every
// call. The conflict-target upsert is the only concurrency control: racing
// ingestions of the same path settle on one complete row, never a column
// interleaving.
func (r *OcrResultRepo) Upsert(ctx context.Context, row OcrResult) (OcrResult, error) {
	var stored OcrResult
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO record_ocr_results
  (profile_id, storage_path, raw_text, distance_km, duration_seconds, recorded_at, confidence, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (storage_path)
DO UPDATE SET
  profile_id = EXCLUDED.profile_id,
  raw_text = EXCLUDED.raw_text,
  distance_km = EXCLUDED.distance_km,
  duration_seconds = EXCLUDED.duration_seconds,
  recorded_at = EXCLUDED.recorded_at,
  confidence = EXCLUDED.confidence,
  updated_at = EXCLUDED.updated_at
RETURNING id, profile_id, storage_path, raw_text, distance_km, duration_seconds, recorded_at, confidence, updated_at`,
		row.ProfileID, row.StoragePath, row.RawText, row.DistanceKm,
		row.DurationSeconds, row.RecordedAt, row.Confidence, r.now().UTC(),
	).Scan(
		&stored.ID, &stored.ProfileID, &stored.StoragePath, &stored.RawText,
		&stored.DistanceKm, &stored.DurationSeconds, &stored.RecordedAt,
		&stored.Confidence, &stored.UpdatedAt,
	)
	if err != nil {
		return OcrResult{}, fmt.Errorf("upsert ocr result: %w", err)
	}
	return stored, nil
}

// Get looks up one row by its storage path.
func (r *OcrResultRepo) Get(ctx context.Context, storagePath string) (OcrResult, error) {
	var row OcrResult
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, profile_id, storage_path, raw_text, distance_km, duration_seconds, recorded_at, confidence, updated_at
FROM record_ocr_results
WHERE storage_path = $1`, storagePath,
	).Scan(
		&row.ID, &row.ProfileID, &row.StoragePath, &row.RawText,
		&row.DistanceKm, &row.DurationSeconds, &row.RecordedAt,
		&row.Confidence, &row.UpdatedAt,
	)
	if err != nil {
		return OcrResult{}, fmt.Errorf("get ocr result: %w", err)
	}
	return row, nil
}
