package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const originalURL = "https://storage.example.com/signed/u1/record.jpg"

func TestPreprocess_NoEndpointIsPassThrough(t *testing.T) {
	p := NewPreprocessor("", "", nil)

	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, result.URL)
	assert.Nil(t, result.Crops)
	assert.False(t, result.Degraded)
	assert.False(t, p.Enabled())
}

func TestPreprocess_SendsImageURLAndBearerToken(t *testing.T) {
	var captured detectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer yolo-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"success": true, "crops": [{"label": "stat_card", "url": "https://crops.example.com/1.jpg"}]}`))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "yolo-key", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, captured.ImageURL)
	assert.Equal(t, "https://crops.example.com/1.jpg", result.URL)
	assert.False(t, result.Degraded)
}

func TestPreprocess_PrefersStatCardLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "crops": [
			{"label": "map", "url": "https://crops.example.com/map.jpg"},
			{"label": "Stat_Card", "url": "https://crops.example.com/card.jpg", "confidence": 0.97}
		]}`))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, "https://crops.example.com/card.jpg", result.URL, "stat_card match is case-insensitive")
	assert.Len(t, result.Crops, 2, "all crops are returned for diagnostics")
	assert.False(t, result.Degraded)
}

func TestPreprocess_FallsBackToFirstCrop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "crops": [
			{"label": "map", "url": "https://crops.example.com/map.jpg"},
			{"label": "route", "url": "https://crops.example.com/route.jpg"}
		]}`))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, "https://crops.example.com/map.jpg", result.URL)
}

func TestPreprocess_CropWithoutURLKeepsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "crops": [
			{"label": "stat_card", "confidence": 0.9, "box": {"x": 10, "y": 20, "width": 300, "height": 200}}
		]}`))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, result.URL)
	require.Len(t, result.Crops, 1)
	require.NotNil(t, result.Crops[0].Box)
	assert.Equal(t, 300.0, result.Crops[0].Box.Width)
	assert.False(t, result.Degraded)
}

func TestPreprocess_ServerErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, result.URL)
	assert.True(t, result.Degraded)
}

func TestPreprocess_UnreachableEndpointDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, result.URL)
	assert.True(t, result.Degraded)
}

func TestPreprocess_NoCropsDegrades(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "success false", body: `{"success": false, "error": "no detections"}`},
		{name: "empty crop list", body: `{"success": true, "crops": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewPreprocessor(server.URL, "", nil)
			result := p.Preprocess(context.Background(), originalURL)

			assert.Equal(t, originalURL, result.URL)
			assert.True(t, result.Degraded)
		})
	}
}

func TestPreprocess_MalformedResponseDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := NewPreprocessor(server.URL, "", nil)
	result := p.Preprocess(context.Background(), originalURL)

	assert.Equal(t, originalURL, result.URL)
	assert.True(t, result.Degraded)
}
