package handlers

import (
	"raffle-admin/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the admin API behind operator auth and the public
// entry API without it.
func RegisterRoutes(router *gin.Engine, eventHandler *EventHandler) {
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/events", eventHandler.CreateEvent)
		api.GET("/events", eventHandler.ListEvents)
		api.GET("/events/:id", eventHandler.GetEvent)
		api.DELETE("/events/:id", eventHandler.DeleteEvent)

		api.POST("/events/:id/fields", eventHandler.AddField)
		api.DELETE("/events/:id/fields/:fieldId", eventHandler.RemoveField)
		api.PUT("/events/:id/fields/:fieldId", eventHandler.SetFieldRequired)

		api.POST("/events/:id/prizes", eventHandler.AddPrize)
		api.DELETE("/events/:id/prizes/:rank", eventHandler.RemovePrize)

		api.PUT("/events/:id/capacity", eventHandler.SetCapacity)
		api.PUT("/events/:id/window", eventHandler.SetWindow)
		api.POST("/events/:id/open", eventHandler.Open)
		api.POST("/events/:id/close", eventHandler.Close)
		api.POST("/events/:id/draw", eventHandler.RunDraw)

		api.GET("/events/:id/entries", eventHandler.GetEntries)
		api.POST("/events/:id/import", eventHandler.ImportEntries)
	}

	public := router.Group("/api/public")
	{
		public.GET("/events/:id/result", eventHandler.GetResult)
		public.GET("/events/:id/entries", eventHandler.GetPublicEntries)
		public.POST("/events/:id/entries", eventHandler.SubmitEntry)
	}
}
