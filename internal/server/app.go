// Package server initializes and runs the userhub application. It opens the
// record store, wires the account and password reset services, and runs the
// HTTP API alongside the gRPC health endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/dmitrijs2005/userhub/internal/server/mail"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/dmitrijs2005/userhub/internal/server/storage"

	gs "github.com/dmitrijs2005/userhub/internal/server/grpc"
	hs "github.com/dmitrijs2005/userhub/internal/server/http"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	store        repomanager.RepositoryManager
	userService  *services.UserService
	resetService *services.PasswordResetService
	closers      []io.Closer
}

// openStore is a seam for tests.
var openStore = repomanager.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	store, err := openStore(ctx, c.DatabaseDSN, c.DatabaseName)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app, err := newApp(ctx, c, logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, store repomanager.RepositoryManager) (*App, error) {
	app := &App{config: c, logger: logger, store: store}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.SessionTokenValidityDuration, c.ResetTokenValidityDuration)
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	mailer, err := mail.NewSMTPMailer(c.SMTPHost, c.SMTPUser, c.SMTPPassword, c.MailFromAddress, c.SMTPSkipVerify, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	if !mailer.IsEnabled() {
		logger.Warn(ctx, "SMTP is not configured, outgoing mail is disabled")
	}

	var limiter mail.Limiter
	if c.RedisURL != "" {
		rl, err := mail.NewRedisLimiterFromURL(ctx, c.RedisURL, c.MailRateLimit, c.MailRateLimitPeriod)
		if err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		limiter = rl
		app.closers = append(app.closers, rl)
	}

	images, err := storage.NewS3ImageStore(ctx, c)
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("image store init error: %w", err)
	}

	app.userService = services.NewUserService(store.Users(), issuer, hasher, images, logger)
	app.resetService = services.NewPasswordResetService(store.Users(), issuer, hasher, mailer, limiter, c, logger)

	return app, nil
}

func (app *App) closeAll() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.resetService,
		app.config.APIKey, app.store.Ping)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store.Ping)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a shutdown signal arrives or a server
// fails, then releases the store and other connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.closeAll()
	if err := app.store.Close(); err != nil {
		app.logger.Error(context.Background(), "store close error", "error", err)
	}

	app.logger.Info(context.Background(), "App stopped")
}
