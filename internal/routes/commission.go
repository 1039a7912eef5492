package routes

import (
	"github.com/labstack/echo/v4"

	"field-crm/internal/authz"
	"field-crm/internal/controllers"
)

func runCommissionRouter(api *echo.Group, commissionCtrl *controllers.CommissionController, gate *authz.Gatekeeper) {
	api.GET("/commissions/export.xlsx", commissionCtrl.ExportXLSX, gate.Require(authz.CommissionsExport))
	api.PATCH("/commissions/:id/status", commissionCtrl.UpdateStatus, gate.Require(authz.CommissionsManage))
}
