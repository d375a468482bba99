package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sawa/internal/app/principal"
	"sawa/internal/infra/broker/kafka"
	"sawa/internal/infra/config"
	ginserver "sawa/internal/infra/http/gin"
	"sawa/internal/infra/obs"
	infraoutbox "sawa/internal/infra/outbox"
	"sawa/internal/infra/policyfile"
	"sawa/internal/infra/security"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		if err := keygen(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "keygen:", err)
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod", "").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	policies, err := policyfile.Load(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("cancellation policies: %w", err)
	}
	keys, err := security.ParseKeyring(cfg.APIKeys)
	if err != nil {
		return fmt.Errorf("api keys: %w", err)
	}
	if keys.Len() == 0 {
		logger.Warn("no API keys configured, only public endpoints are usable")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.Error("storage close failed", "error", err)
		}
	}()

	app := buildApplication(dependencies{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		policies: policies,
		keys:     keys,
	})

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("sawa"))
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		worker := &infraoutbox.Worker{
			Store:       store.outbox,
			Producer:    producer,
			Logger:      logger,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
		logger.Info("outbox relay started", "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("KAFKA_BROKERS not set, events stay in the outbox")
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: store.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// keygen prints a new bearer token and the API_KEYS entry that admits it.
func keygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.String("id", "", "key owner id")
	roles := fs.String("roles", string(principal.RoleTraveler), "comma separated roles")
	cost := fs.Int("cost", 0, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var parsed []principal.Role
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			parsed = append(parsed, principal.Role(strings.ToLower(r)))
		}
	}
	token, entry, err := security.Issue(*id, parsed, security.SecretGenerator{}, security.BcryptHasher{Cost: *cost})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "token: %s\nAPI_KEYS entry: %s\n", token, entry)
	return nil
}
