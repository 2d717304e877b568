package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClova_Recognize_Success(t *testing.T) {
	var captured clovaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-key", r.Header.Get("X-OCR-SECRET"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"images": [{
				"inferResult": "SUCCESS",
				"fields": [
					{"inferText": "2025.09.27", "inferConfidence": 0.95},
					{"inferText": "17.58km", "inferConfidence": 0.88},
					{"inferText": "01:41:50"}
				]
			}]
		}`))
	}))
	defer server.Close()

	client, err := NewClova(server.URL, "secret-key", "")
	require.NoError(t, err)

	result, err := client.Recognize(context.Background(), "https://img.example.com/record.jpg")
	require.NoError(t, err)

	assert.Equal(t, "2025.09.27\n17.58km\n01:41:50", result.RawText)
	assert.Equal(t, []float64{0.95, 0.88}, result.Confidences, "missing confidence is dropped")

	assert.Equal(t, "V2", captured.Version)
	assert.NotEmpty(t, captured.RequestID)
	assert.Positive(t, captured.Timestamp)
	require.Len(t, captured.Images, 1)
	assert.Equal(t, "jpg", captured.Images[0].Format)
	assert.Equal(t, "record", captured.Images[0].Name)
	assert.Equal(t, "https://img.example.com/record.jpg", captured.Images[0].URL)
	assert.Empty(t, captured.Images[0].TemplateIDs)
}

func TestClova_Recognize_TemplateScoped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req clovaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Images, 1)
		assert.Equal(t, []string{"tmpl-7"}, req.Images[0].TemplateIDs)

		_, _ = w.Write([]byte(`{"images": []}`))
	}))
	defer server.Close()

	client, err := NewClova(server.URL, "secret-key", "tmpl-7")
	require.NoError(t, err)

	result, err := client.Recognize(context.Background(), "https://img.example.com/record.jpg")
	require.NoError(t, err)
	assert.Empty(t, result.RawText)
	assert.Empty(t, result.Confidences)
}

func TestClova_Recognize_FreshRequestIDs(t *testing.T) {
	ids := make([]string, 0, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req clovaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids = append(ids, req.RequestID)
		_, _ = w.Write([]byte(`{"images": []}`))
	}))
	defer server.Close()

	client, err := NewClova(server.URL, "secret-key", "")
	require.NoError(t, err)
	client.now = func() time.Time { return time.Unix(1758931200, 0) }

	_, err = client.Recognize(context.Background(), "https://a.example.com/1.jpg")
	require.NoError(t, err)
	_, err = client.Recognize(context.Background(), "https://a.example.com/2.jpg")
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestClova_Recognize_NonOKStatusIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid secret"}`))
	}))
	defer server.Close()

	client, err := NewClova(server.URL, "bad-key", "")
	require.NoError(t, err)

	_, err = client.Recognize(context.Background(), "https://img.example.com/record.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid secret")
}

func TestClova_Recognize_NoFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images": [{"inferResult": "SUCCESS", "fields": []}]}`))
	}))
	defer server.Close()

	client, err := NewClova(server.URL, "secret-key", "")
	require.NoError(t, err)

	result, err := client.Recognize(context.Background(), "https://img.example.com/record.jpg")
	require.NoError(t, err)
	assert.Empty(t, result.RawText)
	assert.Empty(t, result.Confidences)
}

func TestNewClova_MissingSettings(t *testing.T) {
	_, err := NewClova("", "secret", "")
	assert.Error(t, err)

	_, err = NewClova("https://clova.example.com", "", "")
	assert.Error(t, err)
}

func TestNew_ProviderSelection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "clova",
			cfg: Config{
				Provider:       ProviderClova,
				ClovaSecretKey: "secret",
				ClovaInvokeURL: "https://clova.example.com/ocr",
			},
		},
		{
			name:    "unsupported provider",
			cfg:     Config{Provider: "tesseract"},
			wantErr: "unsupported OCR provider",
		},
		{
			name:    "empty provider",
			cfg:     Config{},
			wantErr: "unsupported OCR provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := New(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rec)
		})
	}
}
