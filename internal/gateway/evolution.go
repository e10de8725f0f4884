// Package gateway talks to the WhatsApp gateway (Evolution API): outbound text
// messages and inbound webhook events.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/phone"
)

var (
	ErrSendFailed    = errors.New("gateway send failed")
	ErrNotConfigured = errors.New("gateway not configured")
)

// Sender delivers a text message to a WhatsApp number.
type Sender interface {
	Send(ctx context.Context, number, text string) error
}

// EvolutionClient sends messages through an Evolution API instance.
type EvolutionClient struct {
	config config.GatewayConfig
	client *http.Client
	logger logger.Logger
}

func NewEvolutionClient(cfg config.GatewayConfig, log logger.Logger) *EvolutionClient {
	return &EvolutionClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "gateway",
			"instance":  cfg.Instance,
		}),
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Send posts text to number. The number is reduced to digits before sending.
func (e *EvolutionClient) Send(ctx context.Context, number, text string) error {
	if e.config.BaseURL == "" || e.config.Instance == "" {
		return ErrNotConfigured
	}

	digits := phone.Digits(number)
	if digits == "" {
		return fmt.Errorf("%w: empty destination number", ErrSendFailed)
	}

	body, err := json.Marshal(sendTextRequest{Number: digits, Text: text})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s",
		strings.TrimRight(e.config.BaseURL, "/"), url.PathEscape(e.config.Instance))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.WithError(err).Warn("gateway request failed", map[string]interface{}{
			"number": digits,
		})
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.logger.Warn("gateway rejected message", map[string]interface{}{
			"number": digits,
			"status": resp.StatusCode,
			"body":   string(snippet),
		})
		return fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}

	e.logger.Debug("message sent", map[string]interface{}{
		"number": digits,
		"chars":  len(text),
	})
	return nil
}
