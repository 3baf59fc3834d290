package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/audit"
	auditPostgres "github.com/frahmantamala/muamalati/internal/audit/postgres"
	"github.com/frahmantamala/muamalati/internal/auth"
	authPostgres "github.com/frahmantamala/muamalati/internal/auth/postgres"
	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/general"
	generalPostgres "github.com/frahmantamala/muamalati/internal/general/postgres"
	"github.com/frahmantamala/muamalati/internal/mailer"
	mailerPostgres "github.com/frahmantamala/muamalati/internal/mailer/postgres"
	"github.com/frahmantamala/muamalati/internal/notification"
	notificationPostgres "github.com/frahmantamala/muamalati/internal/notification/postgres"
	"github.com/frahmantamala/muamalati/internal/transaction"
	transactionPostgres "github.com/frahmantamala/muamalati/internal/transaction/postgres"
	"github.com/frahmantamala/muamalati/internal/transport"
	"github.com/frahmantamala/muamalati/internal/transport/middleware"
	"github.com/frahmantamala/muamalati/internal/transport/rest"
	"github.com/frahmantamala/muamalati/internal/transport/swagger"
	"github.com/frahmantamala/muamalati/internal/user"
	userPostgres "github.com/frahmantamala/muamalati/internal/user/postgres"
	"github.com/frahmantamala/muamalati/pkg/cache"
	"github.com/frahmantamala/muamalati/pkg/logger"
	"github.com/frahmantamala/muamalati/pkg/metrics"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Gorm        *gorm.DB
	Redis       *redis.Client
	Router      *chi.Mux
	EventBus    *events.EventBus
	Mailer      *mailer.Client
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.App.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sweepDone := make(chan struct{})
	go deps.RateLimiter.Run(sweepDone)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	close(sweepDone)
	deps.close()
	deps.Logger.Info("Server stopped")
}

// close drains in-flight side effects before releasing connections.
func (d *Dependencies) close() {
	d.EventBus.Wait()
	d.Mailer.Shutdown()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	if _, err := swagger.Load(context.Background()); err != nil {
		return err
	}

	var refCache cache.Cache = cache.Noop{}
	checks := map[string]rest.Pinger{"postgres": deps.DB}
	if deps.Redis != nil {
		rc := cache.NewRedisCache(deps.Redis, "muamalati:", cfg.Cache.TTL)
		refCache = rc
		checks["redis"] = rest.PingFunc(rc.Ping)
	}

	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), tokens, deps.EventBus, cfg.Security.BCryptCost, lg)
	userService := user.NewService(userPostgres.NewRepository(deps.Gorm), cfg.Security.BCryptCost, lg)

	generalService := general.NewService(
		generalPostgres.NewReferenceRepository(deps.Gorm),
		generalPostgres.NewStatisticsRepository(deps.DB),
		refCache,
		lg,
	)

	storage, err := transaction.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	transactionService := transaction.NewService(
		transactionPostgres.NewTransactionRepository(deps.Gorm),
		deps.EventBus,
		storage,
		cfg.Storage.MaxFileSize,
		lg,
	)

	notificationRepo := notificationPostgres.NewNotificationRepository(deps.Gorm)
	dispatcher := notification.NewDispatcher(notificationRepo, notificationPostgres.NewDirectory(deps.Gorm), deps.Mailer, lg)
	dispatcher.RegisterEventHandlers(deps.EventBus)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metrics.Init()
		metricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, rest.Routes{
		Auth:           auth.NewHandler(authService),
		User:           user.NewHandler(userService),
		General:        general.NewHandler(generalService),
		Transaction:    transaction.NewHandler(transactionService, cfg.Storage.MaxFileSize),
		Notification:   notification.NewHandler(notification.NewService(notificationRepo, lg)),
		RBAC:           auth.NewRBACAuthorization(lg),
		Audit:          audit.NewRecorder(auditPostgres.NewAuditRepository(deps.Gorm), lg),
		RateLimiter:    rateLimiterFor(cfg.RateLimit, deps.RateLimiter),
		Health:         rest.NewHealthHandler(checks),
		AllowedOrigins: cfg.Server.Origins(),
		MetricsPath:    metricsPath,
		Logger:         lg,
	})
	return nil
}

func rateLimiterFor(cfg internal.RateLimitConfig, rl *middleware.RateLimiter) *middleware.RateLimiter {
	if !cfg.Enabled {
		return nil
	}
	return rl
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Configure(logger.Options{
		Env:    config.App.Env,
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})
	transport.SetDevelopment(config.App.IsDevelopment())

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db, config.App)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	var rdb *redis.Client
	if config.Cache.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.Cache.Addr,
			Password: config.Cache.Password,
			DB:       config.Cache.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			lg.Warn("redis unavailable, reference data will not be cached", "error", err)
		}
	}

	return &Dependencies{
		Config:      config,
		DB:          db,
		Gorm:        gdb,
		Redis:       rdb,
		Router:      chi.NewRouter(),
		EventBus:    events.NewEventBus(lg),
		Mailer:      newMailClient(config.Mail, gdb, lg),
		RateLimiter: middleware.NewRateLimiter(config.RateLimit.MaxRequests, config.RateLimit.Window),
		Logger:      lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with GORM.
func initGorm(db *sqlx.DB, app internal.AppConfig) (*gorm.DB, error) {
	level := gormLogger.Warn
	if app.IsDevelopment() {
		level = gormLogger.Info
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
	})
}

func newMailClient(cfg internal.MailConfig, gdb *gorm.DB, lg *slog.Logger) *mailer.Client {
	var sender mailer.Sender
	if cfg.Enabled {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	} else {
		sender = mailer.NewDisabledSender(lg)
	}

	return mailer.NewClient(mailer.Config{
		MaxWorkers:  cfg.MaxWorkers,
		QueueSize:   cfg.QueueSize,
		MaxAttempts: cfg.MaxAttempts,
	}, sender, mailerPostgres.NewOutboxRepository(gdb), lg)
}
