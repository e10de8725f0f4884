package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/gateway"
	"github.com/avvvet/deliverybuddy/internal/handlers"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/metrics"
	"github.com/avvvet/deliverybuddy/internal/models"
)

type fakeChat struct {
	err      error
	requests []*models.ChatRequest
}

func (f *fakeChat) ProcessTurn(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{Message: "Olá! Qual é o seu nome?", SessionID: request.SessionID}, nil
}

type fakeReplies struct {
	err      error
	messages []gateway.InboundMessage
	ctxErrs  []error
	deadline []bool
}

func (f *fakeReplies) HandleInbound(ctx context.Context, msg gateway.InboundMessage) (models.ReplyOutcome, error) {
	f.messages = append(f.messages, msg)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	_, ok := ctx.Deadline()
	f.deadline = append(f.deadline, ok)
	if f.err != nil {
		return models.ReplyOutcome{}, f.err
	}
	return models.ReplyOutcome{Matched: true, SessionID: "s1", Class: handlers.ClassConfirmed, Status: models.OrderConfirmed}, nil
}

func newTestServer(t *testing.T, chat *fakeChat, replies *fakeReplies) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).Dispatched("sent")
	s := NewHTTPServer(config.ServerConfig{Addr: ":0"}, "deliverybuddy", chat, replies, reg, logger.NewTestLogger(t))
	return s.Handler(), reg
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Chat(t *testing.T) {
	chat := &fakeChat{}
	h, _ := newTestServer(t, chat, &fakeReplies{})

	rec := doRequest(h, http.MethodPost, "/api/chat", `{"sessionId":"s1","message":"oi","messages":[{"role":"user","content":"oi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "Olá! Qual é o seu nome?", resp.Message)
	assert.Nil(t, resp.ErrorCode)

	require.Len(t, chat.requests, 1)
	assert.Len(t, chat.requests[0].Messages, 1)
}

func TestHTTP_ChatErrors(t *testing.T) {
	tests := []struct {
		name     string
		chatErr  error
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed body", nil, `{"sessionId":`, http.StatusBadRequest, models.ErrorInvalidRequest},
		{"invalid request", fmt.Errorf("%w: message is required", handlers.ErrInvalidRequest), `{"sessionId":"s1"}`, http.StatusBadRequest, models.ErrorInvalidRequest},
		{"internal", errors.New("boom"), `{"sessionId":"s1","message":"oi"}`, http.StatusInternalServerError, models.ErrorInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, &fakeChat{err: tt.chatErr}, &fakeReplies{})

			rec := doRequest(h, http.MethodPost, "/api/chat", tt.body)

			require.Equal(t, tt.wantCode, rec.Code)
			var resp models.ChatResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.ErrorCode)
			assert.Equal(t, tt.wantErr, *resp.ErrorCode)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHTTP_Webhook(t *testing.T) {
	replies := &fakeReplies{}
	h, _ := newTestServer(t, &fakeChat{}, replies)

	payload := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5524991110001@s.whatsapp.net","fromMe":false,"id":"ABC"},"message":{"conversation":"Pedido confirmado"}}}`
	rec := doRequest(h, http.MethodPost, "/api/webhook/whatsapp", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, replies.messages, 1)
	assert.Equal(t, "Pedido confirmado", replies.messages[0].Text)

	var outcome models.ReplyOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Matched)
	assert.Equal(t, models.OrderConfirmed, outcome.Status)
}

func TestHTTP_WebhookOutlivesDroppedConnection(t *testing.T) {
	replies := &fakeReplies{}
	h, _ := newTestServer(t, &fakeChat{}, replies)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5524991110001@s.whatsapp.net"},"message":{"conversation":"Pedido confirmado"}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/whatsapp", strings.NewReader(payload)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Len(t, replies.messages, 1)
	assert.NoError(t, replies.ctxErrs[0])
	assert.True(t, replies.deadline[0])
}

func TestHTTP_WebhookIgnoresOtherEvents(t *testing.T) {
	replies := &fakeReplies{}
	h, _ := newTestServer(t, &fakeChat{}, replies)

	rec := doRequest(h, http.MethodPost, "/api/webhook/whatsapp", `{"event":"connection.update","data":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	assert.Empty(t, replies.messages)
}

func TestHTTP_WebhookHandlerFailure(t *testing.T) {
	h, _ := newTestServer(t, &fakeChat{}, &fakeReplies{err: errors.New("store down")})

	payload := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5524991110001@s.whatsapp.net"},"message":{"conversation":"oi"}}}`
	rec := doRequest(h, http.MethodPost, "/api/webhook/whatsapp", payload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	h, _ := newTestServer(t, &fakeChat{}, &fakeReplies{})

	rec := doRequest(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = doRequest(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "delivery_dispatches_total")
}

func TestHTTP_CORS(t *testing.T) {
	s := NewHTTPServer(config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, "deliverybuddy", &fakeChat{}, &fakeReplies{}, nil, logger.NewNoOpLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNATS_Process(t *testing.T) {
	chat := &fakeChat{}
	nt := newNATSTransport(config.NatsConfig{ChatSubject: "delivery.chat"}, logger.NewTestLogger(t))
	nt.chat = chat

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(nt.process([]byte(`{"sessionId":"s9","message":"oi"}`)), &resp))
	assert.Equal(t, "s9", resp.SessionID)
	assert.Nil(t, resp.ErrorCode)

	require.NoError(t, json.Unmarshal(nt.process([]byte(`not json`)), &resp))
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorInvalidRequest, *resp.ErrorCode)

	chat.err = errors.New("boom")
	resp = models.ChatResponse{}
	require.NoError(t, json.Unmarshal(nt.process([]byte(`{"sessionId":"s9","message":"oi"}`)), &resp))
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorInternal, *resp.ErrorCode)
}

func TestNATS_PublishWithoutConnection(t *testing.T) {
	nt := newNATSTransport(config.NatsConfig{EventsSubject: "delivery.orders"}, logger.NewNoOpLogger())
	assert.NoError(t, nt.Publish(context.Background(), models.OrderEvent{SessionID: "s1", Status: models.OrderSent}))
}
