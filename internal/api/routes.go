package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/check-video-path", s.videoHandler.CheckVideoPath)
		api.POST("/process-video", s.videoHandler.ProcessVideo)
		api.GET("/analytics", s.analyticsHandler.GetAnalytics)
		api.GET("/runs", s.analyticsHandler.ListRuns)
		api.GET("/runs/:id", s.analyticsHandler.GetRun)
		api.GET("/preview", s.previewHandler.StreamPreview)
		api.GET("/system/stats", s.systemHandler.GetStats)
	}

	s.router.GET("/ws/counts", s.liveHandler.StreamCounts)
}
