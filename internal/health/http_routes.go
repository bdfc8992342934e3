package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册健康检查路由，ready 可为空
func RegisterHTTPRoutes(r gin.IRouter, aggregator *Aggregator, ready *Readiness) {
	// 存活探针
	r.GET("/livez", func(c *gin.Context) {
		if !aggregator.Alive() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"alive": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})

	// 就绪探针：启动阶段完成且没有不健康组件
	r.GET("/readyz", func(c *gin.Context) {
		if ready != nil && !ready.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting", "ready": false})
			return
		}
		if !aggregator.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": true})
	})

	// 详细报告，降级仍返回 200
	r.GET("/healthz", func(c *gin.Context) {
		report := aggregator.Report(c.Request.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})
}
