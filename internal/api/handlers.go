package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"security-hub/internal/config"
	"security-hub/internal/grace"
	"security-hub/internal/images"
	"security-hub/internal/logging"
	"security-hub/internal/models"
	"security-hub/internal/network"
	"security-hub/internal/protocol"
	"security-hub/internal/store"
	"security-hub/internal/ws"
)

// imageWindow bounds how far a capture may be from an alert to belong to it.
const imageWindow = 2 * time.Minute

// NotificationLister reads archived escalations.
type NotificationLister interface {
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

// Deps are the components the control API operates on.
type Deps struct {
	Registry      *store.Registry
	Status        *store.StatusStore
	Alerts        *store.AlertLog
	Grace         *grace.Coordinator
	Network       *network.Manager
	Images        *images.Store
	Hub           *ws.Hub
	Notifications NotificationLister
}

type Handler struct {
	deps   Deps
	logger *logging.Logger
	config config.Config
}

func NewHandler(deps Deps, logger *logging.Logger, cfg config.Config) *Handler {
	return &Handler{deps: deps, logger: logger, config: cfg}
}

type pinRequest struct {
	PIN string `json:"pin" binding:"required"`
}

type deviceView struct {
	models.Device
	Sensors map[string]models.SensorStatus `json:"sensors"`
}

// checkPIN writes the error response itself and reports whether to proceed.
func (h *Handler) checkPIN(c *gin.Context) bool {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pin is required"})
		return false
	}
	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(h.config.Security.PIN)) != 1 {
		h.logger.Warnf("Invalid PIN from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid PIN"})
		return false
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"armed":             h.deps.Grace.Armed(),
		"listeners_running": h.deps.Network.Running(),
		"grace":             h.deps.Grace.Status(),
		"unread_alerts":     h.deps.Alerts.UnreadCount(),
		"devices":           len(h.deps.Registry.List()),
	})
}

func (h *Handler) Arm(c *gin.Context) {
	h.deps.Grace.SetArmed(true)
	c.JSON(http.StatusOK, gin.H{"armed": true})
}

func (h *Handler) Disarm(c *gin.Context) {
	if !h.checkPIN(c) {
		return
	}
	_, cancelled := h.deps.Grace.SetArmed(false)
	c.JSON(http.StatusOK, gin.H{"armed": false, "grace_cancelled": cancelled})
}

func (h *Handler) GetGrace(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Grace.Status())
}

func (h *Handler) CancelGrace(c *gin.Context) {
	if !h.checkPIN(c) {
		return
	}
	// A correct PIN disarms; disarming cancels the countdown.
	_, cancelled := h.deps.Grace.SetArmed(false)
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled, "armed": false})
}

func (h *Handler) ListDevices(c *gin.Context) {
	devices := h.deps.Registry.List()
	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceView{Device: d, Sensors: h.deps.Status.ForDevice(d.ID)})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) RemoveDevice(c *gin.Context) {
	id := c.Param("id")
	if err := h.deps.Registry.Remove(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	h.deps.Status.RemoveDevice(id)
	h.logger.Infof("Removed device %s", id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListSensors(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Status.All())
}

func (h *Handler) ConfigureGPIO(c *gin.Context) {
	var pins protocol.GPIOPins
	if err := c.ShouldBindJSON(&pins); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	for _, pin := range []int{pins.Motion, pins.Door, pins.Window, pins.LED} {
		if pin <= 0 || pin > 40 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pins must be between 1 and 40"})
			return
		}
	}

	target := c.Param("id")
	sent, err := h.deps.Network.SendGPIOConfig(h.deps.Registry, target, pins)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return
		}
		h.logger.Errorf("GPIO config for %s failed: %v", target, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "sent": sent})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	filter := models.AlertFilter{DeviceID: c.Query("device")}
	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid unread"})
			return
		}
		filter.UnreadOnly = unread
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}
	c.JSON(http.StatusOK, h.deps.Alerts.List(filter))
}

func (h *Handler) MarkAlertRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}
	alert, err := h.deps.Alerts.MarkRead(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) MarkAllAlertsRead(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"marked": h.deps.Alerts.MarkAllRead()})
}

// ListImages lists captures; ?alert=<id> narrows to captures near that alert.
func (h *Handler) ListImages(c *gin.Context) {
	var (
		list []models.Image
		err  error
	)
	if raw := c.Query("alert"); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
			return
		}
		alert, gerr := h.deps.Alerts.Get(id)
		if gerr != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		list, err = h.deps.Images.ForAlert(alert, imageWindow)
	} else {
		list, err = h.deps.Images.List()
	}
	if err != nil {
		h.logger.Errorf("Failed to list images: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}
	if list == nil {
		list = []models.Image{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	if h.deps.Notifications == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notification archive not configured"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	list, err := h.deps.Notifications.ListNotifications(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Failed to list notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) StartNetwork(c *gin.Context) {
	h.deps.Network.Start()
	c.JSON(http.StatusOK, gin.H{"running": h.deps.Network.Running()})
}

func (h *Handler) StopNetwork(c *gin.Context) {
	h.deps.Network.Stop()
	c.JSON(http.StatusOK, gin.H{"running": h.deps.Network.Running()})
}

func (h *Handler) RestartNetwork(c *gin.Context) {
	h.deps.Network.Restart()
	c.JSON(http.StatusOK, gin.H{"running": h.deps.Network.Running()})
}

func (h *Handler) WebSocket(c *gin.Context) {
	h.deps.Hub.Serve(c.Writer, c.Request)
}
