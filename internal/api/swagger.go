package api

import (
	"net/http"

	_ "trackguard-telemetry-go/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "TrackGuard Telemetry API",
			"version":     "1.0.0",
			"description": "Local control surface for the railway hazard detection telemetry pipeline",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":    "/health",
				"info":      "/",
				"video":     "/video",
				"alerts":    "/alerts",
				"analytics": "/analytics",
			},
			"client_id": s.config.ClientID,
			"port":      s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
