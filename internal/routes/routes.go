package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/handlers"
)

// RegisterRoutes mounts every handler under /api/v1 and adds the health
// endpoint.
func RegisterRoutes(router *gin.Engine, h *handlers.AppHandlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")

	h.Auth.RegisterRoutes(api)
	h.Product.RegisterRoutes(api)
	h.Order.RegisterRoutes(api)
	h.Payment.RegisterRoutes(api)
}
