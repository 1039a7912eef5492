package routes

import (
	"github.com/labstack/echo/v4"

	"field-crm/internal/controllers"
)

func runTechnicianRouter(api *echo.Group, techCtrl *controllers.TechnicianController) {
	api.POST("/dispatch/closest", techCtrl.Dispatch)

	techs := api.Group("/technicians")
	{
		techs.GET("/available", techCtrl.ListAvailable)
		techs.GET("/:id", techCtrl.GetTechnician)
		techs.POST("/:id/locations", techCtrl.RecordLocation)
		techs.GET("/:id/locations/latest", techCtrl.LatestLocation)
	}
}
