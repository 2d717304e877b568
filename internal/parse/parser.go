// Package parse extracts activity metrics (distance, duration, date) from
// raw OCR text. Parsing is pure and deterministic: unmatched fields come
// back nil, malformed input never panics.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Metrics is the typed result of parsing one recognized text blob.
// RawText carries the original (unnormalized) provider text.
type Metrics struct {
	RawText         string
	DistanceKm      *float64
	DurationSeconds *int
	RecordedAt      *time.Time
	Confidence      *float64
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Distance: number (both "." and "," decimal separators) followed by a
	// unit marker. The leading group rejects a digit immediately before the
	// number, since RE2 has no lookbehind.
	distanceRe = regexp.MustCompile(`(?i)(?:^|[^0-9])([0-9]+(?:[.,][0-9]+)?)\s?(?:km|킬로|㎞)`)
)

// durationPatterns are tried in order; the first match wins, so the
// hour-qualified form takes priority over minutes-only.
var durationPatterns = []struct {
	re      *regexp.Regexp
	seconds func(parts []int) int
}{
	{
		re:      regexp.MustCompile(`\b([0-9]{1,2}):([0-9]{2}):([0-9]{2})\b`),
		seconds: func(p []int) int { return p[0]*3600 + p[1]*60 + p[2] },
	},
	{
		re:      regexp.MustCompile(`\b([0-9]{1,2}):([0-9]{2})\b`),
		seconds: func(p []int) int { return p[0]*60 + p[1] },
	},
}

// datePatterns are tried in order. All capture year, month, day. The Korean
// form has no trailing boundary assertion: \b is ASCII-only and never holds
// between a Hangul character and a space.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(20[0-9]{2})[-.]([0-9]{1,2})[-.]([0-9]{1,2})\b`),
	regexp.MustCompile(`\b(20[0-9]{2})/([0-9]{1,2})/([0-9]{1,2})\b`),
	regexp.MustCompile(`\b(20[0-9]{2})년\s*([0-9]{1,2})월\s*([0-9]{1,2})일`),
}

// Parse extracts metrics from raw OCR text plus the provider's per-field
// confidence values. Patterns run against the normalized text; the stored
// RawText stays untouched.
func Parse(rawText string, confidences []float64) Metrics {
	cleaned := Normalize(rawText)

	return Metrics{
		RawText:         rawText,
		DistanceKm:      ExtractDistance(cleaned),
		DurationSeconds: ExtractDuration(cleaned),
		RecordedAt:      ExtractDate(cleaned),
		Confidence:      meanConfidence(confidences),
	}
}

// Normalize narrows full-width characters (Korean running apps emit
// full-width digits and punctuation) and collapses whitespace runs to
// single spaces, trimming the ends.
func Normalize(s string) string {
	s = width.Narrow.String(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ExtractDistance returns the first distance in kilometers, rounded to two
// decimals, or nil when no distance pattern matches.
func ExtractDistance(text string) *float64 {
	m := distanceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	v = math.Round(v*100) / 100
	return &v
}

// ExtractDuration returns the first matched duration in seconds, or nil.
func ExtractDuration(text string) *int {
	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		parts := make([]int, 0, len(m)-1)
		for _, s := range m[1:] {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil
			}
			parts = append(parts, n)
		}
		secs := p.seconds(parts)
		return &secs
	}
	return nil
}

// ExtractDate returns UTC midnight of the first matched calendar date, or
// nil when nothing matches or the matched values do not form a real date.
func ExtractDate(text string) *time.Time {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		if !validDate(year, month, day) {
			return nil
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

// validDate rejects out-of-range components and auto-rollover dates like
// 2025-02-30 (which time.Date would silently turn into 2025-03-02).
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && d.Month() == time.Month(month) && d.Day() == day
}

func meanConfidence(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := clamp01(sum / float64(len(values)))
	if math.IsNaN(mean) {
		return nil
	}
	return &mean
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
