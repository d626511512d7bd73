package routes

import (
	"github.com/labstack/echo/v4"

	"site-entry/internal/controllers"
)

func runEntryRequestRouter(secureGroup *echo.Group, ctrl *controllers.EntryRequestController) {
	group := secureGroup.Group("/entry-requests")
	{
		group.POST("", ctrl.Create)
		group.GET("", ctrl.List)
		group.GET("/:id", ctrl.FindByID)
		group.GET("/:id/history", ctrl.History)
		group.POST("/:id/bp-review", ctrl.StartBpReview())
		group.POST("/:id/bp-approve", ctrl.BpApprove())
		group.POST("/:id/ep-review", ctrl.StartEpReview())
		group.POST("/:id/ep-approve", ctrl.EpApprove())
		group.POST("/:id/reject", ctrl.Reject())
		group.POST("/:id/cancel", ctrl.Cancel())
		group.POST("/:id/work-plan", ctrl.UploadWorkPlan)
	}
}
