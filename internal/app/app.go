package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/b3nzuk3/gameCity-sub001/internal/config"
	"github.com/b3nzuk3/gameCity-sub001/internal/email"
	"github.com/b3nzuk3/gameCity-sub001/internal/handlers"
	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub001/internal/routes"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
	"github.com/b3nzuk3/gameCity-sub001/internal/validator"
	"github.com/b3nzuk3/gameCity-sub001/internal/workers"
)

// Run wires the application together and blocks until SIGINT/SIGTERM.
func Run() error {
	config.LoadConfig()
	cfg := config.GetConfig()

	logger.Init(cfg.Server.Env)

	db, err := ConnectDB(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	}, nil)

	emailProvider := buildEmailProvider(cfg)

	container := services.NewServiceContainer(db, gateway, emailProvider)
	router := SetupRouter(container)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := workers.NewReconciliationWorker(
		container.Payment,
		time.Duration(cfg.Worker.ReconcileIntervalSeconds)*time.Second,
		cfg.Worker.ReconcileBatchSize,
	)
	go worker.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// SetupRouter builds the gin engine with middleware and routes. Separated
// from Run so tests can mount the full route table over a test database.
func SetupRouter(container *services.ServiceContainer) *gin.Engine {
	cfg := config.GetConfig()
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// A wrong HTTP method on a known path must answer 405, not 404. The
	// payment provider probes the callback URL with GET during onboarding.
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())

	appHandlers := handlers.NewAppHandlers(container, validator.New())
	routes.RegisterRoutes(router, appHandlers)

	return router
}

// ConnectDB opens the postgres connection with sane pool settings.
func ConnectDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate applies the schema. uuid-ossp backs the uuid_generate_v4 column
// defaults.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Transaction{},
		&models.CallbackLog{},
	); err != nil {
		return err
	}

	// An order may hold at most one pending or paid transaction. Enforced in
	// the store so two concurrent checkouts cannot both insert; the losing
	// insert surfaces as ErrDuplicatePayment.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_active_order
		ON transactions (order_id) WHERE status IN ('pending', 'paid')`).Error
}

func buildEmailProvider(cfg *config.Config) email.Provider {
	if !cfg.Email.Enabled {
		return email.NewNoopProvider()
	}
	return email.NewSMTPProvider(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	})
}
