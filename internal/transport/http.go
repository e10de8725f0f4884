package transport

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/gateway"
	"github.com/avvvet/deliverybuddy/internal/handlers"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/prompts"
)

// ChatProcessor runs one chat turn.
type ChatProcessor interface {
	ProcessTurn(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error)
}

// InboundHandler consumes restaurant messages arriving from the gateway.
type InboundHandler interface {
	HandleInbound(ctx context.Context, msg gateway.InboundMessage) (models.ReplyOutcome, error)
}

type HTTPServer struct {
	engine  *gin.Engine
	server  *http.Server
	chat    ChatProcessor
	replies InboundHandler
	service string
	logger  logger.Logger
}

// NewHTTPServer builds the router. gatherer backs GET /metrics and may be nil.
func NewHTTPServer(cfg config.ServerConfig, service string, chat ChatProcessor, replies InboundHandler, gatherer prometheus.Gatherer, log logger.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	s := &HTTPServer{
		engine:  gin.New(),
		chat:    chat,
		replies: replies,
		service: service,
		logger: log.With(map[string]interface{}{
			"component": "http",
		}),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s.engine.GET("/health", s.handleHealth)
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := s.engine.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/webhook/whatsapp", s.handleWebhook)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start blocks serving until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.server.Addr,
	})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request served", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.service,
	})
}

func (s *HTTPServer) handleChat(c *gin.Context) {
	var request models.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(request.SessionID, models.ErrorInvalidRequest, "invalid request body"))
		return
	}

	response, err := s.chat.ProcessTurn(c.Request.Context(), &request)
	switch {
	case errors.Is(err, handlers.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse(request.SessionID, models.ErrorInvalidRequest, err.Error()))
	case err != nil:
		s.logger.WithError(err).Error("chat turn failed", map[string]interface{}{
			"sessionId": request.SessionID,
		})
		c.JSON(http.StatusInternalServerError, errorResponse(request.SessionID, models.ErrorInternal, "internal error"))
	default:
		c.JSON(http.StatusOK, response)
	}
}

// webhookTimeout bounds one restaurant message, reply delay and client pacing included.
const webhookTimeout = 90 * time.Second

// handleWebhook processes gateway events synchronously. The work survives the gateway
// dropping the connection. Events that are not inbound text messages are acknowledged
// and dropped.
func (s *HTTPServer) handleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid"})
		return
	}

	msg, ok := gateway.ParseWebhook(payload)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), webhookTimeout)
	defer cancel()

	outcome, err := s.replies.HandleInbound(ctx, msg)
	if err != nil {
		s.logger.WithError(err).Error("failed to handle restaurant message", map[string]interface{}{
			"from": msg.From,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func errorResponse(sessionID, code, message string) *models.ChatResponse {
	return &models.ChatResponse{
		Message:      prompts.GenericErrorMessage,
		SessionID:    sessionID,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
}
