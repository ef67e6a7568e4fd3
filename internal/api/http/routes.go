package http

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every broker endpoint on router.
func RegisterRoutes(router gin.IRoutes, h *Handlers) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics/json", h.MetricsJSON)

	// Channels
	router.POST("/channels", h.CreateChannel)
	router.GET("/channels", h.ListChannels)
	router.GET("/channels/:id", h.GetChannel)
	router.POST("/channels/:id/send", h.Send)
	router.POST("/channels/:id/receive", h.Receive)
	router.DELETE("/channels/:id", h.CloseChannel)

	// Logical processes
	router.POST("/processes", h.RegisterProcess)
	router.GET("/processes", h.ListProcesses)
	router.GET("/processes/:id", h.GetProcess)
	router.DELETE("/processes/:id", h.TerminateProcess)

	// Workers
	router.POST("/workers", h.SpawnWorker)
	router.POST("/workers/:id/stop", h.StopWorker)
	router.GET("/workers/:id/output", h.WorkerOutput)

	// Logs
	router.POST("/logs", h.IngestLogs)
	router.GET("/logs", h.GetLogs)
}
