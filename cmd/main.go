package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-stripe-checkout/config"
	"golang-stripe-checkout/internal/services/checkout/handler"
	"golang-stripe-checkout/internal/services/checkout/providers"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "optional YAML/TOML/.env config file, overridden by the environment")
	printEnv := pflag.Bool("env-help", false, "print the supported environment variables and exit")
	pflag.Parse()

	if *printEnv {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Panicf("failed to load config: %v", err)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	processor := providers.NewStripeProcessor(cfg.Stripe.SecretKey)
	backend := providers.NewSubscriptionBackend(
		cfg.Backend.BaseURL,
		cfg.Backend.CreatePath,
		cfg.Backend.ConfirmPath,
		cfg.Backend.Timeout,
	)

	var webhook *providers.StripeWebhook
	if cfg.Stripe.WebhookSecret != "" {
		webhook = providers.NewStripeWebhook(cfg.Stripe.WebhookSecret)
	}

	h, err := handler.NewHandler(processor, backend, webhook, cfg.Stripe.PublishableKey, logger)
	if err != nil {
		log.Panicf("failed to build handler: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.Http.Addr,
		Handler:           handler.NewRouter(h, cfg.Http.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info(fmt.Sprintf("Server running on %s", cfg.Http.Addr), "backend", cfg.Backend.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to serve server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	slog.Info("server stopped")
}
