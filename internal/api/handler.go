package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/mode"
	"github.com/taoyao-code/cwc-bridge/internal/session"
	pgstorage "github.com/taoyao-code/cwc-bridge/internal/storage/pg"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
	"github.com/taoyao-code/cwc-bridge/internal/transport/mdns"
)

// Devices 设备注册表
type Devices interface {
	List() []device.Info
	Update(ctx context.Context) error
}

// Modes 模式管理
type Modes interface {
	Status() mode.Status
	Switch(ctx context.Context, id string) (*mode.Session, error)
	CleanUp()
	StartMonitoring(ctx context.Context) error
	StopMonitoring() error
}

// Journal 帧日志查询
type Journal interface {
	Recent(ctx context.Context, deviceID string, limit int) ([]pgstorage.Entry, error)
}

// Handler 设备、模式与发现相关接口
type Handler struct {
	devices   Devices
	modes     Modes
	presence  session.Store
	bluetooth *ble.AdapterState
	discovery *mdns.Discovery
	journal   Journal
	logger    *zap.Logger

	scanTimeout time.Duration
}

// NewHandler 除 devices、modes 外均可为空
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		devices:     deps.Devices,
		modes:       deps.Modes,
		presence:    deps.Presence,
		bluetooth:   deps.Bluetooth,
		discovery:   deps.Discovery,
		journal:     deps.Journal,
		logger:      logger,
		scanTimeout: deps.ScanTimeout,
	}
	if h.scanTimeout <= 0 {
		h.scanTimeout = 10 * time.Second
	}
	return h
}

// DeviceView 设备列表项
type DeviceView struct {
	device.Info
	Presence *session.Presence `json:"presence,omitempty"`
	Online   bool              `json:"online"`
}

func (h *Handler) views(list []device.Info) []DeviceView {
	now := time.Now()
	out := make([]DeviceView, 0, len(list))
	for _, info := range list {
		v := DeviceView{Info: info}
		if h.presence != nil {
			if p, ok := h.presence.Get(info.ID); ok {
				v.Presence = &p
				v.Online = h.presence.IsOnline(info.ID, now)
			}
		}
		out = append(out, v)
	}
	return out
}

// ListDevices GET /api/devices
func (h *Handler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": h.views(h.devices.List())})
}

// ScanDevices POST /api/devices/scan
//
// 部分扫描器失败时仍返回已发现的设备，并附带错误信息。
func (h *Handler) ScanDevices(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.scanTimeout)
	defer cancel()

	resp := gin.H{}
	if err := h.devices.Update(ctx); err != nil {
		h.logger.Warn("device scan incomplete", zap.Error(err))
		resp["error"] = err.Error()
	}
	resp["devices"] = h.views(h.devices.List())
	c.JSON(http.StatusOK, resp)
}

// DeviceFrames GET /api/devices/:id/frames?limit=N
func (h *Handler) DeviceFrames(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame journal disabled"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if vv, e := strconv.Atoi(v); e == nil {
			limit = vv
		}
	}
	frames, err := h.journal.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"frames": frames})
}

type modeResponse struct {
	mode.Status
	Online bool `json:"online"`
}

func (h *Handler) modeStatus() modeResponse {
	st := h.modes.Status()
	resp := modeResponse{Status: st}
	if st.Active && h.presence != nil {
		resp.Online = h.presence.IsOnline(st.Device.ID, time.Now())
	}
	return resp
}

// GetMode GET /api/mode
func (h *Handler) GetMode(c *gin.Context) {
	c.JSON(http.StatusOK, h.modeStatus())
}

type switchRequest struct {
	Device string `json:"device" binding:"required"`
}

// SwitchMode POST /api/mode {"device": "<id>"}
func (h *Handler) SwitchMode(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.modes.Switch(c.Request.Context(), req.Device); err != nil {
		h.logger.Warn("mode switch failed", zap.String("device", req.Device), zap.Error(err))
		c.JSON(switchErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.modeStatus())
}

func switchErrorStatus(err error) int {
	switch {
	case errors.Is(err, device.ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, device.ErrNoTransport), errors.Is(err, mode.ErrUnsupportedFamily):
		return http.StatusBadRequest
	default:
		// 设备连接失败
		return http.StatusBadGateway
	}
}

// ClearMode DELETE /api/mode
func (h *Handler) ClearMode(c *gin.Context) {
	h.modes.CleanUp()
	c.JSON(http.StatusOK, h.modeStatus())
}

// StartMonitoring POST /api/monitoring/start
func (h *Handler) StartMonitoring(c *gin.Context) {
	// 轮询生命周期跟随模式而不是本次请求
	h.monitoring(c, func() error { return h.modes.StartMonitoring(context.Background()) })
}

// StopMonitoring POST /api/monitoring/stop
func (h *Handler) StopMonitoring(c *gin.Context) {
	h.monitoring(c, h.modes.StopMonitoring)
}

func (h *Handler) monitoring(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, mode.ErrNoMode):
			code = http.StatusConflict
		case errors.Is(err, mode.ErrNoMonitoring):
			code = http.StatusBadRequest
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.modeStatus())
}

// Bluetooth GET /api/bluetooth
func (h *Handler) Bluetooth(c *gin.Context) {
	if h.bluetooth == nil {
		c.JSON(http.StatusOK, ble.AdapterInfo{})
		return
	}
	c.JSON(http.StatusOK, h.bluetooth.Info())
}

// MDNSServices GET /api/mdns/:service?refresh=1
func (h *Handler) MDNSServices(c *gin.Context) {
	if h.discovery == nil {
		c.JSON(http.StatusOK, gin.H{"hosts": []mdns.Host{}})
		return
	}
	if c.Query("refresh") != "" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.scanTimeout)
		defer cancel()
		if err := h.discovery.ForceDiscovery(ctx); err != nil {
			h.logger.Warn("mdns discovery failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"service": c.Param("service"),
		"hosts":   h.discovery.GetServiceList(c.Param("service")),
		"updated": h.discovery.LastUpdate(),
	})
}
