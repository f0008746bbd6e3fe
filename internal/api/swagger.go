package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"vehicle-counter-go/docs"
)

func (s *Server) setupSwagger() {
	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%d", s.config.SwaggerHost, s.config.SwaggerPort)
	docs.SwaggerInfo.Version = s.config.Version

	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       docs.SwaggerInfo.Title,
			"version":     s.config.Version,
			"description": docs.SwaggerInfo.Description,
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":           "/health",
				"worker_info":      "/",
				"check_video_path": "/api/check-video-path",
				"process_video":    "/api/process-video",
				"analytics":        "/api/analytics",
				"runs":             "/api/runs",
				"preview":          "/api/preview",
				"system_stats":     "/api/system/stats",
				"live_counts":      "/ws/counts",
			},
			"worker_id": s.config.WorkerID,
			"port":      s.config.Port,
			"grpc_port": s.config.GRPCPort,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
