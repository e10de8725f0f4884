package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
)

const userAgent = "Mozilla/5.0 (compatible; deliverybuddy/1.0)"

// Fetcher downloads a page and returns its readable text.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher fetches HTML pages and flattens them to text. Link targets are kept so
// wa.me and tel: links stay visible to number scanners.
type HTTPFetcher struct {
	config config.FetchConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPFetcher(cfg config.FetchConfig, log logger.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "fetch",
		}),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*f.config.Backoff); err != nil {
				return "", err
			}
		}

		text, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return text, nil
		}
		lastErr = err
		f.logger.Debug("page fetch failed", map[string]interface{}{
			"url":     pageURL,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return "", lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.config.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.config.MaxBytes)
	}
	return ExtractText(body)
}

// ExtractText returns the visible text of an HTML document followed by its link targets.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						b.WriteString(attr.Val)
						b.WriteByte(' ')
					}
				}
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String()), nil
}
