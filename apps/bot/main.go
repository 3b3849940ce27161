package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	accountsservice "github.com/mukando-hq/storekeeper/domains/accounts/be/service"
	approvalsservice "github.com/mukando-hq/storekeeper/domains/approvals/be/service"
	catalogservice "github.com/mukando-hq/storekeeper/domains/catalog/be/service"
	"github.com/mukando-hq/storekeeper/domains/conversations/be/flow"
	salesservice "github.com/mukando-hq/storekeeper/domains/sales/be/service"
	shopsservice "github.com/mukando-hq/storekeeper/domains/shops/be/service"
	tenantsprov "github.com/mukando-hq/storekeeper/domains/tenants/be/provisioning"
	tenantsservice "github.com/mukando-hq/storekeeper/domains/tenants/be/service"
	"github.com/mukando-hq/storekeeper/platform/go/chat"
	"github.com/mukando-hq/storekeeper/platform/go/conversation"
	platformlogging "github.com/mukando-hq/storekeeper/platform/go/logging"
	"github.com/mukando-hq/storekeeper/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	GlobalSchema    string        `env:"GLOBAL_SCHEMA" envDefault:"storekeeper"`

	GatewayURL     string        `env:"GATEWAY_URL"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	ConversationBackend string        `env:"CONVERSATION_BACKEND" envDefault:"memory"` // memory | redis
	ConversationTTL     time.Duration `env:"CONVERSATION_TTL" envDefault:"0"`          // 0 never expires
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "bot-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if err := persistence.BootstrapGlobalSchema(ctx, pool, cfg.GlobalSchema); err != nil {
		logger.Fatal("bootstrap global schema", zap.Error(err))
	}

	accountStore, err := persistence.NewAccountStore(pool, cfg.GlobalSchema)
	if err != nil {
		logger.Fatal("init account store", zap.Error(err))
	}
	partitionStore, err := persistence.NewPartitionStore(pool, cfg.GlobalSchema)
	if err != nil {
		logger.Fatal("init partition store", zap.Error(err))
	}

	partitionDB := persistence.NewPartitionDB(persistence.PartitionDBConfig{
		Pool:         pool,
		GlobalSchema: cfg.GlobalSchema,
	})

	shopStore := persistence.NewShopStore(partitionDB)
	catalogStore := persistence.NewCatalogStore(partitionDB)
	salesStore := persistence.NewSalesStore(partitionDB)
	approvalStore := persistence.NewApprovalStore(partitionDB)

	var sender chat.Sender
	if cfg.GatewayURL != "" {
		sender = newGatewaySender(cfg.GatewayURL, cfg.GatewayTimeout, logger)
	} else {
		logger.Warn("no gateway url configured; outbound messages go to the log")
		sender = &loggingSender{logger: logger}
	}

	tenantService := tenantsservice.New(
		partitionStore,
		tenantsprov.NewDBProvisioner(pool),
		logger,
	)
	accountService := accountsservice.New(accountStore)
	shopService := shopsservice.New(shopStore)
	catalogService := catalogservice.New(catalogStore)
	saleService := salesservice.New(salesStore)
	approvalService := approvalsservice.New(approvalStore, accountService, sender)

	states, err := buildConversationStore(cfg, logger)
	if err != nil {
		logger.Fatal("init conversation store", zap.Error(err))
	}

	dispatcher := flow.NewDispatcher(flow.Deps{
		States:    states,
		Accounts:  accountService,
		Tenants:   tenantService,
		Shops:     shopService,
		Catalog:   catalogService,
		Sales:     saleService,
		Approvals: approvalService,
		Corrector: accountStore,
		Sender:    sender,
		Logger:    logger,
	})

	router := chi.NewRouter()
	router.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
	)
	router.Use(platformlogging.RequestLogger(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	router.Post("/webhook", func(w http.ResponseWriter, r *http.Request) {
		var event chat.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}
		if event.Identity == 0 {
			http.Error(w, "identity is required", http.StatusBadRequest)
			return
		}
		if event.Kind != chat.KindText && event.Kind != chat.KindToken {
			http.Error(w, "unknown event kind", http.StatusBadRequest)
			return
		}

		dispatcher.HandleEvent(r.Context(), event)
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting bot server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildConversationStore(cfg config, logger *zap.Logger) (conversation.Store, error) {
	switch cfg.ConversationBackend {
	case "memory":
		return conversation.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("using redis conversation backend",
			zap.String("addr", cfg.RedisAddr),
			zap.Duration("ttl", cfg.ConversationTTL),
		)
		return conversation.NewRedisStore(conversation.RedisStoreConfig{
			Client: client,
			TTL:    cfg.ConversationTTL,
		})
	default:
		return nil, errors.New("invalid CONVERSATION_BACKEND (use memory or redis)")
	}
}
