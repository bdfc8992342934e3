package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/api/middleware"
	"github.com/taoyao-code/cwc-bridge/internal/session"
	"github.com/taoyao-code/cwc-bridge/internal/transport/ble"
	"github.com/taoyao-code/cwc-bridge/internal/transport/mdns"
)

// Deps 路由依赖，Journal 未启用时保持为 nil 接口
type Deps struct {
	Devices     Devices
	Modes       Modes
	Presence    session.Store
	Bluetooth   *ble.AdapterState
	Discovery   *mdns.Discovery
	Journal     Journal
	Runner      http.Handler
	ScanTimeout time.Duration
}

// RegisterRoutes 注册 /api 与 /ws/runner
func RegisterRoutes(r *gin.Engine, deps Deps, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || deps.Devices == nil || deps.Modes == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewHandler(deps, logger)

	api := r.Group("/api")
	ws := r.Group("/ws")
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		ws.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	}

	// 设备
	api.GET("/devices", handler.ListDevices)
	api.POST("/devices/scan", handler.ScanDevices)
	api.GET("/devices/:id/frames", handler.DeviceFrames)

	// 模式与轮询
	api.GET("/mode", handler.GetMode)
	api.POST("/mode", handler.SwitchMode)
	api.DELETE("/mode", handler.ClearMode)
	api.POST("/monitoring/start", handler.StartMonitoring)
	api.POST("/monitoring/stop", handler.StopMonitoring)

	// 发现
	api.GET("/bluetooth", handler.Bluetooth)
	api.GET("/mdns/:service", handler.MDNSServices)

	if deps.Runner != nil {
		ws.GET("/runner", gin.WrapH(deps.Runner))
	}
	logger.Info("api routes registered")
}
