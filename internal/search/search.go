// Package search wraps the web search API and page fetching used to discover restaurants.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
)

var (
	ErrSearchTimeout = errors.New("SEARCH_TIMEOUT")
	ErrNotConfigured = errors.New("search credentials not configured")
	ErrSearchFailed  = errors.New("search request failed")
)

// Result is one organic web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client runs a single web query.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// GoogleClient queries the Custom Search JSON API.
type GoogleClient struct {
	config config.SearchConfig
	client *http.Client
	logger logger.Logger
}

func NewGoogleClient(cfg config.SearchConfig, log logger.Logger) *GoogleClient {
	return &GoogleClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "search",
		}),
	}
}

// Search runs query, retrying timeouts and server errors with a linear backoff.
func (g *GoogleClient) Search(ctx context.Context, query string) ([]Result, error) {
	if g.config.APIKey == "" || g.config.EngineID == "" {
		return nil, ErrNotConfigured
	}

	searchURL, err := g.buildSearchURL(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*g.config.Backoff); err != nil {
				return nil, ErrSearchTimeout
			}
		}

		results, err := g.do(ctx, searchURL)
		if err == nil {
			g.logger.Debug("web search completed", map[string]interface{}{
				"query":       query,
				"resultCount": len(results),
				"attempt":     attempt + 1,
			})
			return results, nil
		}
		lastErr = err

		var status statusError
		if errors.As(err, &status) && !status.retryable() {
			break
		}
		g.logger.Warn("web search attempt failed", map[string]interface{}{
			"query":   query,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	if errors.Is(lastErr, ErrSearchTimeout) {
		return nil, ErrSearchTimeout
	}
	return nil, fmt.Errorf("%w: %v", ErrSearchFailed, lastErr)
}

func (g *GoogleClient) do(ctx context.Context, searchURL string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrSearchTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError{code: resp.StatusCode}
	}

	var apiResponse struct {
		Items []Result `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return apiResponse.Items, nil
}

func (g *GoogleClient) buildSearchURL(query string) (string, error) {
	baseURL, err := url.Parse(g.config.BaseURL)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Add("key", g.config.APIKey)
	params.Add("cx", g.config.EngineID)
	params.Add("q", query)
	if g.config.Results > 0 {
		params.Add("num", strconv.Itoa(g.config.Results))
	}
	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("search API returned %d", e.code)
}

func (e statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "Client.Timeout")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
