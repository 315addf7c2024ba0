// Package main is the entry point for the admin console API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/config"
	"github.com/heritage-trails/admin-api/internal/handler"
	natsclient "github.com/heritage-trails/admin-api/internal/nats"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/internal/translate"
	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/tracing"
)

const serviceName = "heritage-admin-api"

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Postgres
	db, err := store.New(ctx, store.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	// Redis sessions
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	checks := map[string]handler.Check{
		"database": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	// Change feed: NATS when configured, in-process otherwise.
	var (
		feed     realtime.Feed
		replayer handler.Replayer
	)
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			Name:     serviceName,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer natsClient.Close()

		changeFeed := natsclient.NewChangeFeed(natsClient, cfg.SubscriptionBuffer)
		if err := changeFeed.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensuring change stream: %w", err)
		}
		feed, replayer = changeFeed, changeFeed
		checks["nats"] = natsClient.Ping
	} else {
		log.Warn("NATS_URL not set, using in-process change feed")
		feed = realtime.NewLocalFeed(cfg.SubscriptionBuffer)
	}

	if cfg.PGNotifyChannel != "" {
		listener := realtime.NewPGListener(db.Pool(), cfg.PGNotifyChannel, feed, log)
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Error("postgres listener stopped", zap.Error(err))
			}
		}()
	}

	sender, closeSender, err := newSender(cfg, log)
	if err != nil {
		return err
	}
	defer closeSender()

	services := service.NewServices(service.ServicesConfig{
		Stores:          db.Stores(),
		TxRunner:        service.NewTxRunner(db),
		Sessions:        store.NewRedisSessionStore(rdb),
		Feed:            feed,
		Sender:          sender,
		Translator:      newTranslator(cfg, log),
		JWTSecret:       cfg.JWTSecret,
		SessionLifetime: cfg.SessionLifetime,
		ThreadLimit:     cfg.ThreadMessageLimit,
		Logger:          log,
	})

	router := handler.NewRouter(handler.RouterConfig{
		Handlers: handler.Handlers{
			Health:        handler.NewHealthHandler(checks),
			Auth:          handler.NewAuthHandler(services.Auth(), services.Users(), log),
			Users:         handler.NewUserHandler(services.Users(), log),
			Bookings:      handler.NewBookingHandler(services.Bookings(), log),
			Conversations: handler.NewConversationHandler(services.Chat(), log),
			Stream:        handler.NewStreamHandler(services.Chat(), feed, replayer, log),
			ChatSocket:    handler.NewChatSocketHandler(services.Chat(), feed, cfg.ThreadMessageLimit, handler.OriginChecker(cfg.AllowedOrigins), log),
			Feedback:      handler.NewFeedbackHandler(services.Feedback(), log),
			Campaigns:     handler.NewCampaignHandler(services.Marketing(), log),
			Reports:       handler.NewReportHandler(services.Reports(), log),
			CallRequests:  handler.NewCallRequestHandler(services.CallRequests(), log),
			MasterData:    handler.NewMasterDataHandler(services.MasterData(), log),
		},
		Authenticator:     services.Auth(),
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		ServiceName:       serviceName,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

// newSender selects the notification transport. The returned func releases
// its resources.
func newSender(cfg *config.Config, log *logger.Logger) (notify.Sender, func(), error) {
	switch cfg.NotifyTransport {
	case "queue":
		pub, err := notify.NewAMQPPublisher(cfg.AMQPURL, notify.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to notification queue: %w", err)
		}
		return notify.NewQueueSender(pub, log), func() { _ = pub.Close() }, nil
	case "function", "":
		client := notify.NewFunctionClient(notify.FunctionConfig{
			EmailURL:  cfg.EmailFunctionURL,
			PushURL:   cfg.PushFunctionURL,
			AuthToken: cfg.FunctionAuthToken,
		}, log)
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
}

// newTranslator returns nil when no provider key is configured, which
// disables auto-translation.
func newTranslator(cfg *config.Config, log *logger.Logger) service.Translator {
	provider := translate.Provider(cfg.TranslationProvider)
	apiKey := cfg.OpenAIAPIKey
	if provider == translate.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	if apiKey == "" {
		log.Warn("translation provider key not set, auto-translation disabled",
			zap.String("provider", string(provider)))
		return nil
	}

	client, err := translate.NewClient(provider, apiKey)
	if err != nil {
		log.Warn("failed to create translation client, auto-translation disabled", zap.Error(err))
		return nil
	}
	return translate.NewTranslator(client, cfg.TranslationModel, log)
}
