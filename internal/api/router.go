package api

import (
	"github.com/gin-gonic/gin"

	"security-hub/internal/config"
	"security-hub/internal/logging"
)

func NewRouter(h *Handler, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", h.Health)
	r.GET("/ws", h.WebSocket)

	api := r.Group(cfg.API.BasePath)
	{
		api.GET("/status", h.GetStatus)

		// Arming and grace period
		api.POST("/system/arm", h.Arm)
		api.POST("/system/disarm", h.Disarm)
		api.GET("/grace", h.GetGrace)
		api.POST("/grace/cancel", h.CancelGrace)

		// Devices and sensors
		api.GET("/devices", h.ListDevices)
		api.DELETE("/devices/:id", h.RemoveDevice)
		api.POST("/devices/:id/gpio", h.ConfigureGPIO)
		api.GET("/sensors", h.ListSensors)

		// Alerts, captures and escalations
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/read", h.MarkAllAlertsRead)
		api.POST("/alerts/:id/read", h.MarkAlertRead)
		api.GET("/images", h.ListImages)
		api.GET("/notifications", h.ListNotifications)

		// Listener lifecycle
		api.POST("/network/start", h.StartNetwork)
		api.POST("/network/stop", h.StopNetwork)
		api.POST("/network/restart", h.RestartNetwork)
	}
	return r
}
