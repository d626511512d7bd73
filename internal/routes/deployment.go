package routes

import (
	"github.com/labstack/echo/v4"

	"site-entry/internal/controllers"
)

func runDeploymentRouter(secureGroup *echo.Group, ctrl *controllers.DeploymentController) {
	group := secureGroup.Group("/deployments")
	{
		group.POST("", ctrl.Create)
		group.GET("", ctrl.List)
		group.GET("/current", ctrl.Current)
		group.GET("/export", ctrl.Export)
		group.GET("/:id", ctrl.FindByID)
		group.GET("/:id/notes", ctrl.Notes)
		group.POST("/:id/extend", ctrl.Extend)
		group.POST("/:id/change-worker", ctrl.ChangeWorker)
		group.POST("/:id/complete", ctrl.Complete)
	}
}
