package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"field-crm/internal/routes"
	"field-crm/internal/scheduler"
	"field-crm/internal/workers"
	"field-crm/pkg/database/migrations"
	apperrors "field-crm/pkg/errors"
	appmiddleware "field-crm/pkg/middleware"
	"field-crm/pkg/utils"
	"field-crm/pkg/validation"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the notification worker and the daily scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func runServe(migrateFirst bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if migrateFirst {
		if err := migrations.Up(ctx, app.pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	e := newEcho(app)
	routes.InitRouter(e, app.services, app.jwt, app.metrics, logger)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.board.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		workers.NewNotificationWorker(app.queue, app.notifier, cfg.Notifications, logger.Named("notification_worker")).Run(workerCtx)
	}()

	cron := scheduler.New(logger.Named("scheduler"))
	if err := cron.RegisterDailyReset(cfg.Scheduler.DailyResetSpec, app.services.Technicians); err != nil {
		cancelWorker()
		wg.Wait()
		return err
	}
	cron.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-serverErr:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	cancelWorker()
	wg.Wait()
	cron.Stop(shutdownCtx)

	logger.Info("server stopped cleanly")
	return err
}

func newEcho(app *application) *echo.Echo {
	logger := app.logger

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "internal server error", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))

	allowed := make(map[string]struct{}, len(app.cfg.Server.AllowedOrigins))
	for _, o := range app.cfg.Server.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			_, ok := allowed[origin]
			return ok, nil
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition, echo.HeaderXRequestID},
	}))

	e.Use(appmiddleware.RequestLogger(logger))
	if app.cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(app.cfg.Server.RequestTimeout))
	}
	return e
}
