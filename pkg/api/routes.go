package api

import (
	"github.com/gin-gonic/gin"

	"ghl-connector/pkg/middleware"
)

// AdminPrefix is the path prefix of the operator API
const AdminPrefix = "/admin"

// RegisterRoutes wires the public and admin routes onto router.
func RegisterRoutes(router *gin.Engine, handlers *Handlers, adminToken string) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/track", handlers.Track)
	router.POST("/webhook/entry-created", handlers.HandleEntryCreated)

	admin := router.Group(AdminPrefix, middleware.AdminAuth(adminToken))
	{
		admin.GET("/forms/:formId/fields", handlers.GetFormFields)
		admin.POST("/test-connection", handlers.TestConnection)
		admin.POST("/provision", handlers.Provision)
		admin.DELETE("/cache", handlers.ClearAllCaches)
		admin.DELETE("/cache/:accountId", handlers.ClearCache)
		admin.GET("/results", handlers.GetResults)
	}
}
