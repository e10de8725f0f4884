package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
)

func testSearchConfig(baseURL string) config.SearchConfig {
	return config.SearchConfig{
		BaseURL:    baseURL,
		APIKey:     "key",
		EngineID:   "engine",
		Timeout:    time.Second,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		Results:    10,
	}
}

func TestGoogleClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		assert.Equal(t, "engine", r.URL.Query().Get("cx"))
		assert.Equal(t, "pizza restaurante delivery Volta Redonda RJ", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]string{
				{"title": "Pizzaria Bella - Volta Redonda", "link": "https://bella.com.br", "snippet": "delivery"},
			},
		})
	}))
	defer server.Close()

	client := NewGoogleClient(testSearchConfig(server.URL), logger.NewTestLogger(t))
	results, err := client.Search(context.Background(), "pizza restaurante delivery Volta Redonda RJ")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pizzaria Bella - Volta Redonda", results[0].Title)
	assert.Equal(t, "https://bella.com.br", results[0].Link)
}

func TestGoogleClient_NotConfigured(t *testing.T) {
	cfg := testSearchConfig("http://unused")
	cfg.APIKey = ""

	_, err := NewGoogleClient(cfg, logger.NewNoOpLogger()).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	results, err := NewGoogleClient(testSearchConfig(server.URL), logger.NewNoOpLogger()).
		Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGoogleClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewGoogleClient(testSearchConfig(server.URL), logger.NewNoOpLogger()).
		Search(context.Background(), "q")

	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGoogleClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	cfg := testSearchConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 0

	_, err := NewGoogleClient(cfg, logger.NewNoOpLogger()).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSearchTimeout)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	page := `<html><head><style>.x{}</style><script>var a = 1;</script></head>
<body><h1>Pizzaria Bella</h1><p>Peça pelo WhatsApp</p>
<a href="https://wa.me/5524991234567">Fale conosco</a></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(config.FetchConfig{Timeout: time.Second, MaxBytes: 1 << 16}, logger.NewNoOpLogger())
	text, err := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "Pizzaria Bella")
	assert.Contains(t, text, "wa.me/5524991234567")
	assert.NotContains(t, text, "var a")
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(config.FetchConfig{Timeout: time.Second, MaxRetries: 1, Backoff: time.Millisecond}, logger.NewNoOpLogger())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(strings.NewReader(`<div>Tel: <b>(24) 99123-4567</b></div>`))
	require.NoError(t, err)
	assert.Equal(t, "Tel: (24) 99123-4567", text)
}
