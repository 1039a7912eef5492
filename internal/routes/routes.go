package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/internal/authz"
	"field-crm/internal/controllers"
	"field-crm/internal/services"
	"field-crm/internal/sync"
	"field-crm/pkg/metrics"
	"field-crm/pkg/middleware"
	"field-crm/pkg/service"
	appws "field-crm/pkg/websocket"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Jobs        services.JobLifecycleServiceInterface
	Timeline    services.TimelineServiceInterface
	Technicians services.TechnicianServiceInterface
	Dispatch    services.DispatchServiceInterface
	Commissions services.CommissionServiceInterface
	Reports     services.ReportServiceInterface
	Roster      sync.HandlerInterface
	// Board is optional; without it the live board endpoint is not mounted.
	Board *appws.Hub
}

func InitRouter(e *echo.Echo, svc Services, jwtSvc service.JWTService, collector *metrics.Collector, logger *zap.Logger) {
	logger.Info("InitRouter: registering routes")

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if collector != nil {
		e.GET("/metrics", echo.WrapHandler(collector.Handler()))
	}

	authMW := middleware.NewAuthMiddleware(jwtSvc, logger.Named("auth"))
	api := e.Group("/api", authMW.Actor)
	gate := authz.NewGatekeeper(logger.Named("authz"))

	jobCtrl := controllers.NewJobController(svc.Jobs, svc.Timeline, logger.Named("jobs"))
	techCtrl := controllers.NewTechnicianController(svc.Technicians, svc.Dispatch, logger.Named("technicians"))
	commissionCtrl := controllers.NewCommissionController(svc.Commissions, svc.Reports, logger.Named("commissions"))
	syncCtrl := controllers.NewSyncController(svc.Roster, logger)

	runJobRouter(api, jobCtrl, commissionCtrl)
	runTechnicianRouter(api, techCtrl)
	runCommissionRouter(api, commissionCtrl, gate)
	runSyncRouter(api, syncCtrl, gate)
	if svc.Board != nil {
		runBoardRouter(api, controllers.NewBoardController(svc.Board, logger.Named("board")))
	}

	logger.Info("InitRouter: routes registered")
}
