// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	router "paynow-wallet/internal/api"
	"paynow-wallet/internal/api/handler"
	"paynow-wallet/internal/config"
	"paynow-wallet/internal/notification"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/repository/memory"
	"paynow-wallet/internal/repository/postgres"
	"paynow-wallet/internal/repository/redisstore"
	"paynow-wallet/internal/service"
	"paynow-wallet/internal/util"
	"paynow-wallet/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	// Repositories
	UserRepository        repository.UserRepository
	WalletRepository      repository.WalletRepository
	TransactionRepository repository.TransactionRepository
	OTPStore              repository.OTPStore
	Users                 repository.UserDirectory

	// Services
	Notifier      *notification.Notifier
	OTPService    service.OTPService
	LedgerService service.LedgerService
	WalletService service.WalletService
	UserService   service.UserService

	// Background jobs
	Scheduler *cron.Cron

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, app.DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		app.Logger.Info("Database schema is up to date.")
	}

	// 4. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository()
	app.WalletRepository = postgres.NewWalletRepository()
	app.TransactionRepository = postgres.NewTransactionRepository()
	app.Users = repository.NewUserDirectory(app.UserRepository, app.DB)

	if err := app.initOTPStore(ctx); err != nil {
		return err
	}
	app.Logger.Info("Repositories initialized.", "otp_store", cfg.OTP.Store)

	// 5. Initialize Notifications
	app.Notifier = notification.NewNotifier(app.emailSink(), app.smsSink(), app.Users, cfg.NotificationTimeout, app.Logger)

	// 6. Initialize Services
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.OTPService = service.NewOTPService(app.OTPStore, app.Notifier, cfg.OTP.TTL, app.Logger)
	app.LedgerService = service.NewLedgerService(app.DB, app.TransactionRepository, app.Users, app.Logger)
	app.WalletService = service.NewWalletService(service.WalletServiceDeps{
		DBBeginner: app.DB, // This is the DBTxBeginner
		DBExecutor: app.DB, // This is the DBExecutor
		WalletRepo: app.WalletRepository,
		Users:      app.Users,
		Ledger:     app.LedgerService,
		OTP:        app.OTPService,
		Notifier:   app.Notifier,
		Currency:   cfg.Currency,
		Logger:     app.Logger,
		BeginTx:    db.BeginTx,
		CommitTx:   db.CommitTx,
		RollbackTx: db.RollbackTx,
	})
	app.UserService = service.NewUserService(service.UserServiceDeps{
		DBBeginner: app.DB,
		DBExecutor: app.DB,
		UserRepo:   app.UserRepository,
		WalletRepo: app.WalletRepository,
		OTP:        app.OTPService,
		Hasher:     util.NewBcryptHasher(),
		Currency:   cfg.Currency,
		Logger:     app.Logger,
		BeginTx:    db.BeginTx,
		CommitTx:   db.CommitTx,
		RollbackTx: db.RollbackTx,
	})
	app.Logger.Info("Services initialized.")

	// 7. Schedule background jobs
	if err := app.startScheduler(); err != nil {
		return err
	}

	// 8. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	userHandler := handler.NewUserHandler(app.UserService, app.Logger)
	app.HTTPHandler = router.NewRouter(walletHandler, userHandler, router.RouterOptions{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		LegacyEndpoints: cfg.LegacyEndpointsEnabled,
	}, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

func (app *Application) initOTPStore(ctx context.Context) error {
	if app.Config.OTP.Store != config.OTPStoreRedis {
		app.OTPStore = memory.NewOTPStore()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     app.Config.Redis.Addr,
		Password: app.Config.Redis.Password,
		DB:       app.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", app.Config.Redis.Addr, err)
	}
	app.Redis = client
	app.OTPStore = redisstore.NewOTPStore(client, "")
	return nil
}

func (app *Application) emailSink() notification.Sink {
	if app.Config.SMTP.Host == "" {
		app.Logger.Warn("SMTP not configured, email notifications are logged only")
		return notification.NewLogSink("email", app.Logger)
	}
	return notification.NewSMTPSink(app.Config.SMTP, app.Logger)
}

func (app *Application) smsSink() notification.Sink {
	if app.Config.SMSGatewayURL == "" {
		app.Logger.Warn("SMS gateway not configured, SMS notifications are logged only")
		return notification.NewLogSink("sms", app.Logger)
	}
	return notification.NewSMSGatewaySink(app.Config.SMSGatewayURL, app.Config.SMSGatewayAPIKey, nil, app.Logger)
}

// startScheduler runs the periodic OTP purge. The Redis store expires keys itself,
// so the job is a no-op there.
func (app *Application) startScheduler() error {
	app.Scheduler = cron.New()
	schedule := fmt.Sprintf("@every %s", app.Config.OTP.PurgeInterval)
	_, err := app.Scheduler.AddFunc(schedule, func() {
		if _, err := app.OTPService.PurgeExpired(context.Background()); err != nil {
			app.Logger.Error("OTP purge failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule OTP purge: %w", err)
	}
	app.Scheduler.Start()
	app.Logger.Info("Background jobs scheduled.", "otp_purge_interval", app.Config.OTP.PurgeInterval.String())
	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")

	if app.Scheduler != nil {
		select {
		case <-app.Scheduler.Stop().Done():
		case <-ctx.Done():
			app.Logger.Warn("Background jobs did not stop in time")
		}
	}

	if app.Notifier != nil {
		done := make(chan struct{})
		go func() {
			app.Notifier.Wait()
			close(done)
		}()
		select {
		case <-done:
			app.Logger.Info("Pending notifications delivered.")
		case <-ctx.Done():
			app.Logger.Warn("Gave up waiting for pending notifications")
		}
	}

	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close redis connection", "error", err)
		}
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
