// Package server boots the service from configuration and runs the HTTP
// listener until the context is cancelled.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/config"
	"github.com/shashiranjanraj/krishimitra/internal/kernel"
	"github.com/shashiranjanraj/krishimitra/pkg/ai"
	"github.com/shashiranjanraj/krishimitra/pkg/auth"
	"github.com/shashiranjanraj/krishimitra/pkg/cache"
	"github.com/shashiranjanraj/krishimitra/pkg/database"
	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/mail"
	"github.com/shashiranjanraj/krishimitra/pkg/migration"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
	"github.com/shashiranjanraj/krishimitra/pkg/storage"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

const shutdownTimeout = 15 * time.Second

// App is a booted service. Close releases what Boot opened.
type App struct {
	Kernel  *kernel.HTTPKernel
	DB      *gorm.DB
	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Boot connects every backing service named in configuration and builds the
// kernel. On error everything opened so far is closed.
func Boot(ctx context.Context) (_ *App, err error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	app := &App{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if uri := config.Get("LOG_MONGO_URI", ""); uri != "" {
		h, err := logger.ConnectMongo(uri,
			config.Get("LOG_MONGO_DB", "krishimitra"),
			config.Get("LOG_MONGO_COLLECTION", "logs"),
			slog.LevelInfo,
		)
		if err != nil {
			return nil, err
		}
		logger.Attach(h)
		app.closers = append(app.closers, h.Close)
	}

	db, err := database.Connect()
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.closers = append(app.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if config.AutoMigrate() {
		if _, err := migration.New(db).Run(); err != nil {
			return nil, err
		}
	}

	sessions, err := sessionStore(ctx, app)
	if err != nil {
		return nil, err
	}
	opts := session.DefaultOptions()
	opts.TTL = config.SessionTTL()
	opts.Secure = config.SessionSecure()

	disk, err := storage.FromConfig(ctx)
	if err != nil {
		return nil, err
	}

	smtp := mail.SMTPFromConfig()
	if smtp.Username == "" {
		logger.Warn("boot: MAIL_USERNAME not set, merchant mails will fail")
	}

	var completer ai.Completer = ai.Unconfigured{}
	if c, err := ai.NewGenAICompleter(ctx, config.GeminiAPIKey(), config.GeminiModel()); err != nil {
		logger.Warn("boot: AI gateway disabled, answering with fallback", "error", err)
	} else {
		completer = c
	}

	if config.VisionURL() == "" {
		logger.Warn("boot: VISION_URL not set, disease detection will fail")
	}

	app.Kernel = kernel.NewHTTPKernel(kernel.Deps{
		DB:             db,
		Sessions:       sessions,
		SessionOptions: opts,
		Hasher:         auth.NewHasher(auth.DefaultParams),
		Mailer:         mail.NewSMTPSender(smtp),
		WebhookURL:     config.Get("NOTIFY_WEBHOOK_URL", ""),
		HTTP:           khttp.Default,
		Completer:      completer,
		AITimeout:      config.AITimeout(),
		Detector:       vision.NewHTTPDetector(khttp.Default, config.VisionURL(), config.Get("VISION_TOKEN", "")),
		VisionTimeout:  config.VisionTimeout(),
		Disk:           disk,
		AuthRateLimit:  config.AuthRateLimit(),
		TrustProxy:     config.TrustProxy(),
	})
	return app, nil
}

func sessionStore(ctx context.Context, app *App) (session.Store, error) {
	if config.SessionDriver() != "redis" {
		return session.NewMemoryStore(), nil
	}
	rc, err := cache.Connect(ctx, cache.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       config.Int("REDIS_DB", 0),
		Prefix:   config.Get("REDIS_PREFIX", "krishi:"),
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = rc.Close() })
	return session.NewRedisStore(rc), nil
}

// Start boots the service and serves until ctx is cancelled, then drains
// in-flight requests.
func Start(ctx context.Context) error {
	app, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           app.Kernel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", config.AppEnv())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
