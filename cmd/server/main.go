package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/directory"
	"github.com/avvvet/deliverybuddy/internal/extractor"
	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:   "deliverybuddy",
	Short: "Chat assistant that collects delivery orders and dispatches them to restaurants",
	Long: `deliverybuddy collects a food order over chat, finds nearby restaurants with a
WhatsApp contact, sends them the order and relays their replies back to the client.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the WhatsApp webhook and the optional NATS listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one restaurant search and print the candidates as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		food, _ := cmd.Flags().GetString("food")
		city, _ := cmd.Flags().GetString("city")
		return runSearch(cmd.Context(), food, city)
	},
}

func init() {
	searchCmd.Flags().String("food", "pizza", "Food wanted, e.g. \"pizza\" or \"quero um açaí\"")
	searchCmd.Flags().String("city", "", "City to search in (default is locale.default_city)")

	rootCmd.AddCommand(serveCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Failed to load config: %w", err)
	}
	return cfg, logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format), nil
}

func serve() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info("🚀 Starting delivery assistant...", map[string]interface{}{
		"service": cfg.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.nats != nil {
		if err := a.nats.Serve(a.chat); err != nil {
			return err
		}
	}

	server := transport.NewHTTPServer(cfg.Server, cfg.ServiceName, a.chat, a.replies, a.registry, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("✅ Delivery assistant is running!", map[string]interface{}{
		"addr":        cfg.Server.Addr,
		"store":       cfg.Store.Driver,
		"defaultCity": cfg.Locale.DefaultCity,
	})

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("🛑 Shutting down gracefully...", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("⚠️ Error shutting down http server", nil)
	}

	log.Info("👋 Delivery assistant stopped", nil)
	return nil
}

func runSearch(ctx context.Context, food, city string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	order := extractor.New(cfg.Locale.DefaultCity).Extract(nil, food)
	if city == "" {
		city = cfg.Locale.DefaultCity
	}

	candidates := newSearcher(cfg, log).Search(ctx, directory.Query{
		FoodType: order.FoodType,
		City:     city,
		State:    phone.StateFor(city, cfg.Locale.DefaultState),
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(candidates)
}
