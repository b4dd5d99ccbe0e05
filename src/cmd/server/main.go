package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/controller"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/middleware"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/router"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/notification"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/ratelimit"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/implementations"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/memory"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
	"github.com/steve-ongera/mpesa-ledger/src/internal/config"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/scheduler"
	"github.com/steve-ongera/mpesa-ledger/src/internal/telemetry"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/services"
)

type repositories struct {
	store     repo_interfaces.LedgerStore
	wallets   repo_interfaces.WalletRepository
	agents    repo_interfaces.AgentRepository
	merchants repo_interfaces.MerchantRepository
	txns      repo_interfaces.TransactionRepository
	bands     repo_interfaces.ChargeBandRepository
	loans     repo_interfaces.LoanRepository
	close     func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelExporterEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		logger.Error("startup failed", err, logger.Fields{"component": "telemetry"})
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", logger.Fields{"error": err.Error()})
		}
	}()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", err, logger.Fields{"store": cfg.Store})
		os.Exit(1)
	}
	defer repos.close()

	var (
		limiter middleware.Limiter
		locker  scheduler.Locker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("startup failed", err, logger.Fields{"component": "redis"})
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimitPrefix)
		locker = scheduler.NewDistributedLock(client, scheduler.DefaultLockOptions())
	} else {
		logger.Warn("redis not configured, rate limiting and job locks disabled", nil)
	}

	publisher, closePublisher := eventPublisher(cfg)
	defer closePublisher()
	dispatcher := notification.NewDispatcher(
		notification.NewBreakerPublisher("notifications", publisher, notification.DefaultBreakerOptions()),
		notification.DefaultDispatcherOptions(),
	)

	charges := services.NewChargesService(repos.bands, cfg.ChargeOutOfBandPolicy == config.OutOfBandReject)
	if _, err := charges.Reload(ctx); err != nil {
		logger.Error("startup failed", err, logger.Fields{"component": "charges"})
		os.Exit(1)
	}

	ids := commons.NewIDGenerator()
	transfers := services.NewTransferService(
		repos.store,
		repos.wallets,
		repos.agents,
		repos.merchants,
		repos.txns,
		charges,
		services.NewCommissionCalculator(cfg.WithdrawalCommissionShare),
		dispatcher,
		ids,
		services.TransferOptions{
			UnitTimeout:     cfg.UnitTimeout,
			Currency:        cfg.Currency,
			FeeSinkWalletID: cfg.FeeSinkWalletID,
			MinAmount:       cfg.MinTransactionAmount,
			MaxAmount:       cfg.MaxTransactionAmount,
			Limits:          services.LimitPolicy{Mode: services.LimitMode(cfg.LimitPolicy)},
			TracerProvider:  tel.TracerProvider,
		},
	)
	loans := services.NewLoanService(repos.store, repos.loans, repos.wallets, transfers, ids, services.LoanOptions{
		RejectOverpayment: cfg.LoanOverpaymentPolicy == config.OverpaymentReject,
		UnitTimeout:       cfg.UnitTimeout,
	})
	pins := services.NewPinService(repos.wallets)

	jobs := scheduler.New(charges, loans, locker, scheduler.Options{
		ChargeBandRefresh: cfg.ChargeBandRefreshSchedule,
		LoanDefaultSweep:  cfg.LoanDefaultSweepSchedule,
	})
	if err := jobs.Start(); err != nil {
		logger.Error("scheduler started with errors", err, nil)
	}

	handler := router.New(router.Options{
		JWTSecret:          []byte(cfg.JWTSecret),
		ChannelID:          cfg.ChannelID,
		ChannelKey:         cfg.ChannelKey,
		Limiter:            limiter,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.UnitTimeout + 5*time.Second,
	},
		controller.NewTransactionController(transfers, pins, cfg.RequireTransactionPIN),
		controller.NewWalletController(transfers, pins),
		controller.NewChargesController(charges),
		controller.NewLoanController(loans, pins, cfg.RequireTransactionPIN),
	)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.Fields{"port": cfg.ServerPort, "store": cfg.Store})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", err, nil)
	}
	select {
	case <-jobs.Stop().Done():
	case <-shutdownCtx.Done():
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", logger.Fields{"error": err.Error()})
	}
}

func openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	if cfg.Store == config.StoreMemory {
		store := memory.NewStore()
		seedMemory(store)
		logger.Warn("using in-memory store, data is lost on restart", nil)
		return repositories{
			store:     store,
			wallets:   store.Wallets(),
			agents:    store.Agents(),
			merchants: store.Merchants(),
			txns:      store.Transactions(),
			bands:     store.ChargeBands(),
			loans:     store.Loans(),
			close:     func() {},
		}, nil
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := implementations.RunMigrations(migrateCtx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		return repositories{}, err
	}

	db, err := implementations.Open(ctx, cfg.DatabaseDSN, implementations.DefaultPoolOptions())
	if err != nil {
		return repositories{}, err
	}
	return postgresRepositories(db), nil
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		store:     implementations.NewLedgerStore(db),
		wallets:   implementations.NewWalletRepository(db),
		agents:    implementations.NewAgentRepository(db),
		merchants: implementations.NewMerchantRepository(db),
		txns:      implementations.NewTransactionRepository(db),
		bands:     implementations.NewChargeBandRepository(db),
		loans:     implementations.NewLoanRepository(db),
		close:     func() { _ = db.Close() },
	}
}

// eventPublisher returns the RabbitMQ publisher, or a logging stand-in when
// the broker is not configured or unreachable at startup.
func eventPublisher(cfg config.Config) (service_interfaces.EventPublisher, func()) {
	if cfg.RabbitMQURL == "" {
		logger.Warn("rabbitmq not configured, notifications are logged only", nil)
		return notification.LogPublisher{}, func() {}
	}
	publisher, err := notification.NewRabbitPublisher(cfg.RabbitMQURL, cfg.NotificationExchange)
	if err != nil {
		logger.Error("rabbitmq unavailable, notifications are logged only", err, nil)
		return notification.LogPublisher{}, func() {}
	}
	return publisher, publisher.Close
}
