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

	"group-vault/config"
	httpHandler "group-vault/internal/adapter/http/handler"
	"group-vault/internal/adapter/messaging/kafka"
	"group-vault/internal/adapter/storage/memory"
	pgStorage "group-vault/internal/adapter/storage/postgres"
	redisStorage "group-vault/internal/adapter/storage/redis"
	"group-vault/internal/core/ports"
	"group-vault/internal/job"
	"group-vault/internal/service"
	"group-vault/pkg/logger"

	"github.com/gin-gonic/gin"
)

// notifyTimeout bounds one event's delivery across every sink, webhook retries included.
const notifyTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("GVL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "group-vault")
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Group Vault")

	ctx := context.Background()

	var (
		repos     service.Repositories
		auditRepo ports.AuditRepository
		checkers  []ports.HealthChecker
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		repos = service.Repositories{
			Vaults:      pgStorage.NewVaultRepo(pool),
			Members:     pgStorage.NewMemberRepo(pool),
			Ledger:      pgStorage.NewLedgerRepo(pool),
			Wallets:     pgStorage.NewWalletRepo(pool),
			Parties:     pgStorage.NewPartyRepo(pool),
			Approvals:   pgStorage.NewApprovalRepo(pool),
			Idempotency: pgStorage.NewIdempotencyRepo(pool),
			Transactor:  pgStorage.NewTransactor(pool),
		}
		auditRepo = pgStorage.NewAuditRepo(pool)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	case config.StorageDriverMemory:
		store := memory.NewStore()
		repos = service.Repositories{
			Vaults:      memory.NewVaultRepo(store),
			Members:     memory.NewMemberRepo(store),
			Ledger:      memory.NewLedgerRepo(store),
			Wallets:     memory.NewWalletRepo(store),
			Parties:     memory.NewPartyRepo(store),
			Approvals:   memory.NewApprovalRepo(store),
			Idempotency: memory.NewIdempotencyRepo(store),
			Transactor:  store,
		}
		auditRepo = memory.NewAuditRepo(store)
		log.Warn().Msg("Using in-memory storage; state is lost on restart")
	}

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")
	checkers = append(checkers, redisStorage.NewHealthCheck(rdb))

	// Event sinks
	var sinks []ports.EventSink
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewSyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka producer")
		}
		publisher := kafka.NewPublisher(producer, cfg.Kafka.Topic, log)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka event sink enabled")
	}
	if cfg.Webhook.Enabled {
		httpClient := &http.Client{Timeout: cfg.Webhook.Timeout}
		sinks = append(sinks, service.NewWebhookSink(cfg.Webhook, service.NewHMACSignatureService(), httpClient, log))
		log.Info().Str("url", cfg.Webhook.URL).Msg("Webhook event sink enabled")
	}
	notifier := service.NewNotificationService(notifyTimeout, log, sinks...)

	vaultSvc := service.NewVaultService(repos, redisStorage.NewIdempotencyCache(rdb), notifier, cfg.Ledger, log)
	approvalSvc := service.NewApprovalService(repos, vaultSvc, notifier, cfg.Approval, cfg.Ledger.MaxRetries, log)
	reportingSvc := service.NewReportingService(repos.Ledger, repos.Members)
	auditSvc := service.NewAuditService(auditRepo, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	specBytes, err := os.ReadFile("docs/api/openapi.yaml")
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		VaultSvc:       vaultSvc,
		ApprovalSvc:    approvalSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: checkers,
		AuditSvc:       auditSvc,
		OpenAPISpec:    specBytes,
		Logger:         log,
	})

	sweeper := job.NewExpirySweeper(approvalSvc, redisStorage.NewLock(rdb), cfg.Approval, log)
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	go sweeper.Start(sweeperCtx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sweeper.Stop()
	stopSweeper()
	notifier.Wait()

	log.Info().Msg("Server exited")
}
