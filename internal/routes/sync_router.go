package routes

import (
	"github.com/labstack/echo/v4"

	"field-crm/internal/authz"
	"field-crm/internal/controllers"
)

func runSyncRouter(api *echo.Group, syncCtrl *controllers.SyncController, gate *authz.Gatekeeper) {
	roster := api.Group("/sync", gate.Require(authz.RosterSync))
	roster.POST("/technicians", syncCtrl.SyncTechnicians)
	roster.POST("/salespeople", syncCtrl.SyncSalespeople)
}
