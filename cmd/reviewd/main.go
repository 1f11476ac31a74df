package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"feedbackhub/internal/admintoken"
	"feedbackhub/internal/app"
	"feedbackhub/internal/config"
	"feedbackhub/internal/server"
	"feedbackhub/internal/util"
	"feedbackhub/pkg/ai"
	"feedbackhub/pkg/events"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	generator, err := newGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init text generator", "err", err)
	}

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			util.Fatal("failed to connect event broker", "err", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	verifier, err := admintoken.NewVerifier(admintoken.VerifierOptions{
		Secret:   cfg.AdminTokenSecret,
		Issuer:   cfg.AdminTokenIssuer,
		Audience: cfg.AdminTokenAudience,
	})
	if err != nil {
		util.Fatal("failed to init admin token verifier", "err", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:      cfg.DatabaseURL,
		Generator:        generator,
		Events:           publisher,
		ListDefaultLimit: cfg.ListDefaultLimit,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		AdminTokens:              verifier,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SubmitRateLimitPerMinute: cfg.SubmitRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("review server listening", "addr", addr, "provider", cfg.GenerationProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	switch strings.ToLower(cfg.GenerationProvider) {
	case "gemini":
		options := []ai.GeminiOption{}
		if cfg.GenerationBaseURL != "" {
			options = append(options, ai.WithGeminiBaseURL(cfg.GenerationBaseURL))
		}
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey, options...)
		if err != nil {
			return nil, err
		}
		return ai.NewGeminiGenerator(client, cfg.GenerationModel), nil
	case "ollama":
		return ai.NewOllamaGenerator(ai.NewOllamaClient(cfg.GenerationBaseURL), cfg.GenerationModel), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}
