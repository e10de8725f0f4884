package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/directory"
	"github.com/avvvet/deliverybuddy/internal/extractor"
	"github.com/avvvet/deliverybuddy/internal/gateway"
	"github.com/avvvet/deliverybuddy/internal/handlers"
	"github.com/avvvet/deliverybuddy/internal/llm"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/memory"
	"github.com/avvvet/deliverybuddy/internal/metrics"
	"github.com/avvvet/deliverybuddy/internal/search"
	"github.com/avvvet/deliverybuddy/internal/transport"
)

// app holds the wired service components.
type app struct {
	cfg      *config.Config
	store    *memory.Manager
	searcher *directory.Searcher
	chat     *handlers.ChatHandler
	replies  *handlers.ReplyHandler
	nats     *transport.NATSTransport
	registry *prometheus.Registry
	logger   logger.Logger
}

func newSearcher(cfg *config.Config, log logger.Logger) *directory.Searcher {
	return directory.NewSearcher(
		search.NewGoogleClient(cfg.Search, log),
		search.NewHTTPFetcher(cfg.Fetch, log),
		directory.NewRandomEstimator(),
		directory.Options{
			DefaultAreaCode: cfg.Locale.DefaultAreaCode,
			DefaultState:    cfg.Locale.DefaultState,
		},
		log,
	)
}

func newStore(cfg config.StoreConfig, log logger.Logger) (memory.Store, error) {
	switch cfg.Driver {
	case "redis":
		log.Info("🔌 Connecting to Redis...", map[string]interface{}{"url": cfg.RedisURL})
		store, err := memory.NewRedisStore(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		log.Info("✅ Redis connected", nil)
		return store, nil
	default:
		log.Info("🧠 Using in-memory store", map[string]interface{}{"ttl": cfg.TTL.String()})
		return memory.NewMemoryStore(cfg.TTL), nil
	}
}

func newProvider(ctx context.Context, cfg config.LLMConfig, log logger.Logger) llm.Provider {
	provider, err := llm.NewLangChainProvider(ctx, cfg, log)
	if errors.Is(err, llm.ErrNotConfigured) {
		log.Warn("⚠️ No LLM API key, replies fall back to fixed messages", nil)
		return llm.Unavailable{}
	}
	if err != nil {
		log.WithError(err).Warn("⚠️ LLM provider unavailable, replies fall back to fixed messages", nil)
		return llm.Unavailable{}
	}
	log.Info("🤖 LLM provider initialized", map[string]interface{}{
		"provider": cfg.Provider,
		"model":    cfg.Model,
	})
	return provider
}

func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	store, err := newStore(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	manager := memory.NewManager(store)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collected := metrics.New(registry)

	a := &app{
		cfg:      cfg,
		store:    manager,
		searcher: newSearcher(cfg, log),
		registry: registry,
		logger:   log,
	}

	var events handlers.Publisher = handlers.NoopPublisher{}
	if cfg.Nats.Enabled() {
		log.Info("📡 Connecting to NATS...", map[string]interface{}{"url": cfg.Nats.URL})
		nt, err := transport.NewNATSTransport(cfg.Nats, cfg.ServiceName, log)
		if err != nil {
			manager.Close()
			return nil, err
		}
		a.nats = nt
		events = nt
	}

	provider := newProvider(ctx, cfg.LLM, log)
	sender := gateway.NewEvolutionClient(cfg.Gateway, log)
	locks := handlers.NewKeyedMutex()
	clock := handlers.SystemClock()

	a.chat = handlers.NewChatHandler(handlers.ChatDeps{
		Store:        manager,
		Extractor:    extractor.New(cfg.Locale.DefaultCity),
		Searcher:     a.searcher,
		Provider:     provider,
		Sender:       sender,
		Events:       events,
		Metrics:      collected,
		Locks:        locks,
		Clock:        clock,
		Location:     cfg.Locale.Location(),
		DefaultState: cfg.Locale.DefaultState,
		Logger:       log,
	})
	a.replies = handlers.NewReplyHandler(handlers.ReplyDeps{
		Store:           manager,
		Provider:        provider,
		Sender:          sender,
		Events:          events,
		Metrics:         collected,
		Locks:           locks,
		Clock:           clock,
		Dispatch:        cfg.Dispatch,
		DefaultAreaCode: cfg.Locale.DefaultAreaCode,
		Logger:          log,
	})

	return a, nil
}

func (a *app) Close() {
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			a.logger.WithError(err).Warn("⚠️ Error closing NATS transport", nil)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("⚠️ Error closing store", nil)
	}
}
