package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.ClientInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	video := s.router.Group("/video")
	{
		video.POST("", s.telemetryHandler.UploadVideo)
		video.DELETE("", s.telemetryHandler.ClearVideo)
		video.GET("/status", s.telemetryHandler.GetStatus)
		video.GET("/frames", s.telemetryHandler.ListFrames)
		video.GET("/frames/current", s.telemetryHandler.GetCurrentFrame)
		video.GET("/preview.jpg", s.telemetryHandler.GetPreview)
		video.POST("/playback", s.telemetryHandler.ControlPlayback)
	}

	alerts := s.router.Group("/alerts")
	{
		alerts.GET("", s.alertHandler.ListAlerts)
		alerts.POST("", s.alertHandler.RaiseAlert)
		alerts.POST("/:id/ack", s.alertHandler.AcknowledgeAlert)
		alerts.DELETE("/:id", s.alertHandler.DismissAlert)
		alerts.POST("/read", s.alertHandler.MarkAllRead)
		alerts.POST("/sound", s.alertHandler.SetSound)
	}

	s.router.GET("/analytics", s.telemetryHandler.GetAnalytics)
}
