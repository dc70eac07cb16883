package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"

	storefront "github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/mailer"
)

type App struct {
	settings *storefront.Settings
	logger   *glog.BaseLogger
	db       *bun.DB
	redis    *redis.Client
	repo     storefront.RepositoryManager
	srv      *fiber.App
}

func (a *App) SetLogger(lgr *glog.BaseLogger) *App {
	a.logger = lgr
	return a
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	ctx := context.Background()
	app := (&App{}).SetLogger(storefront.NewLogger(os.Stdout, "pretty", false))

	if err := storefront.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := storefront.NewSettingsContainer().
		WithLogger(app.GetLogger("config"))

	if err := cfg.Load(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	settings := cfg.Raw()
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.settings = settings
	app.SetLogger(storefront.NewLogger(os.Stdout, settings.LogFormat, settings.Debug))

	logger := app.GetLogger("app")
	if settings.Debug {
		logger.Debug("configuration", "settings", print.MaybePrettyJSON(settings.Redacted()))
	}

	if err := WithPersistence(ctx, app); err != nil {
		logger.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	if err := WithHTTPServer(ctx, app); err != nil {
		logger.Error("http setup failed", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("listening", "addr", settings.Addr)
		if err := app.srv.Listen(settings.Addr); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	if err := app.srv.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", "error", err)
	}

	if app.redis != nil {
		_ = app.redis.Close()
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := storefront.OpenDB(app.settings.DatabaseDSN)
	if err != nil {
		return err
	}

	if err := storefront.CreateSchema(ctx, db); err != nil {
		return err
	}

	app.db = db
	app.repo = storefront.NewRepositoryManager(db)
	app.repo.MustValidate()

	hasher := storefront.NewBcryptHasher(app.settings.BcryptCost)
	admin, created, err := storefront.SeedAdmin(ctx, app.repo, hasher, storefront.AdminSeed{
		Name:     app.settings.AdminName,
		Email:    app.settings.AdminEmail,
		Password: app.settings.AdminPassword,
	}, time.Now())
	if err != nil {
		return err
	}

	if created {
		app.GetLogger("persistence").Info("admin account seeded", "account_id", admin.ID.String())
	}

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	cfg := app.settings
	hasher := storefront.NewBcryptHasher(cfg.BcryptCost)

	tokens := storefront.NewTokenService(app.repo, cfg,
		storefront.WithTokenLogger(app.GetLogger("tokens")),
	)

	activityLogger := app.GetLogger("activity")
	activity := storefront.ActivitySinkFunc(func(_ context.Context, event storefront.ActivityEvent) error {
		activityLogger.Info("activity",
			"event", string(event.EventType),
			"account_id", event.AccountID,
			"metadata", event.Metadata,
		)
		return nil
	})

	accounts := storefront.NewAccountService(app.repo, tokens, newMailer(app),
		storefront.WithAccountLogger(app.GetLogger("accounts")),
		storefront.WithOTPTTL(cfg.GetOTPTTL()),
		storefront.WithPasswordHasher(hasher),
		storefront.WithAttemptLimiter(newAttemptLimiter(ctx, app)),
		storefront.WithActivitySink(activity),
	)

	catalog := storefront.NewCatalogService(app.repo,
		storefront.WithCatalogLogger(app.GetLogger("catalog")),
		storefront.WithCatalogActivitySink(activity),
	)

	controller := storefront.NewController(accounts, catalog, storefront.NewGuard(tokens, app.GetLogger("guard")),
		storefront.WithControllerDebug(cfg.Debug),
		storefront.WithControllerLogger(app.GetLogger("http")),
		storefront.WithRateLimiter(storefront.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
	)

	srv := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: storefront.ErrorHandler(app.GetLogger("http:errors")),
	})

	srv.Use(recover.New())
	srv.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	controller.RegisterRoutes(srv)

	app.srv = srv
	return nil
}

func newMailer(app *App) storefront.Mailer {
	cfg := app.settings
	if cfg.SMTPHost == "" {
		app.GetLogger("mailer").Warn("APP_SMTP_HOST not set, verification emails are written to stdout")
		return mailer.NewWriter(os.Stdout)
	}

	return mailer.NewSMTP(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	})
}

func newAttemptLimiter(ctx context.Context, app *App) storefront.AttemptLimiter {
	cfg := app.settings
	if cfg.RedisAddr == "" {
		return storefront.NewMemoryAttemptLimiter(cfg.OTPMaxAttempts, cfg.OTPAttemptWindow, time.Now)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		app.GetLogger("attempts").Warn("redis unavailable, using in-memory otp attempt limiter", "error", err)
		_ = client.Close()
		return storefront.NewMemoryAttemptLimiter(cfg.OTPMaxAttempts, cfg.OTPAttemptWindow, time.Now)
	}

	app.redis = client
	return storefront.NewRedisAttemptLimiter(client, cfg.OTPMaxAttempts, cfg.OTPAttemptWindow)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
