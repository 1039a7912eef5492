package routes

import (
	"github.com/labstack/echo/v4"

	"field-crm/internal/controllers"
)

func runJobRouter(api *echo.Group, jobCtrl *controllers.JobController, commissionCtrl *controllers.CommissionController) {
	jobs := api.Group("/jobs")
	{
		jobs.POST("", jobCtrl.CreateJob)
		jobs.GET("", jobCtrl.ListJobs)
		jobs.GET("/:id", jobCtrl.GetJob)
		jobs.GET("/:id/timeline", jobCtrl.Timeline)

		jobs.POST("/:id/assign", jobCtrl.Assign)
		jobs.POST("/:id/confirm", jobCtrl.Confirm)
		jobs.POST("/:id/en-route", jobCtrl.EnRoute)
		jobs.POST("/:id/arrive", jobCtrl.Arrive)
		jobs.POST("/:id/start", jobCtrl.Start)
		jobs.POST("/:id/complete", jobCtrl.Complete)
		jobs.POST("/:id/cancel", jobCtrl.Cancel)

		jobs.PATCH("/:id/costs", jobCtrl.UpdateCosts)
		jobs.POST("/:id/quote-sent", jobCtrl.QuoteSent)

		jobs.POST("/:id/commissions", commissionCtrl.Calculate)
		jobs.GET("/:id/commissions", commissionCtrl.ListByJob)
	}
}
