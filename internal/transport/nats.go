package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/handlers"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/models"
)

// NATSTransport serves chat turns over request/reply and publishes order events.
type NATSTransport struct {
	conn    *nats.Conn
	config  config.NatsConfig
	chat    ChatProcessor
	timeout time.Duration
	logger  logger.Logger
}

func NewNATSTransport(cfg config.NatsConfig, serviceName string, log logger.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(serviceName),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	nt := newNATSTransport(cfg, log)
	nt.conn = conn
	nt.logger.Info("connected to NATS", map[string]interface{}{
		"url": cfg.URL,
	})
	return nt, nil
}

func newNATSTransport(cfg config.NatsConfig, log logger.Logger) *NATSTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &NATSTransport{
		config:  cfg,
		timeout: timeout,
		logger: log.With(map[string]interface{}{
			"component": "nats",
		}),
	}
}

// Serve subscribes chat to the configured request subject.
func (nt *NATSTransport) Serve(chat ChatProcessor) error {
	nt.chat = chat
	_, err := nt.conn.Subscribe(nt.config.ChatSubject, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.ChatSubject, err)
	}

	nt.logger.Info("subscribed to chat subject", map[string]interface{}{
		"subject": nt.config.ChatSubject,
	})
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	data := nt.process(msg.Data)
	if err := msg.Respond(data); err != nil {
		nt.logger.WithError(err).Error("failed to send response", nil)
	}
}

// process turns a raw request into a raw response. Errors are encoded in the response.
func (nt *NATSTransport) process(data []byte) []byte {
	var request models.ChatRequest
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.WithError(err).Warn("error parsing request", nil)
		return nt.encode(errorResponse("", models.ErrorInvalidRequest, "invalid request format"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.timeout)
	defer cancel()

	response, err := nt.chat.ProcessTurn(ctx, &request)
	switch {
	case errors.Is(err, handlers.ErrInvalidRequest):
		return nt.encode(errorResponse(request.SessionID, models.ErrorInvalidRequest, err.Error()))
	case err != nil:
		nt.logger.WithError(err).Error("error processing chat turn", map[string]interface{}{
			"sessionId": request.SessionID,
		})
		return nt.encode(errorResponse(request.SessionID, models.ErrorInternal, "internal error"))
	}
	return nt.encode(response)
}

func (nt *NATSTransport) encode(response *models.ChatResponse) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		nt.logger.WithError(err).Error("failed to marshal response", nil)
		return []byte(`{}`)
	}
	return data
}

// Publish sends an order event on the events subject. Without an events subject it
// does nothing.
func (nt *NATSTransport) Publish(ctx context.Context, event models.OrderEvent) error {
	if nt.config.EventsSubject == "" || nt.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := nt.conn.Publish(nt.config.EventsSubject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (nt *NATSTransport) Close() error {
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed", nil)
	}
	return nil
}
