package app

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器，指标关闭时不注册 /metrics
func NewHTTPServer(cfg *config.Config, metricsHandler http.Handler, log *zap.Logger) *httpserver.Server {
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}
	return httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, log.Named("http"))
}
