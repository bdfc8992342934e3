package mdns

import (
	"context"
	"fmt"
	"strings"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// DefaultAIYPort 树莓派 AIY 控制服务端口
const DefaultAIYPort = 8765

// AIYScanner 把 ssh 服务中的树莓派主机转为 WebSocket 设备
type AIYScanner struct {
	discovery *Discovery
	service   string
	port      int
}

// NewAIYScanner port<=0 时使用 DefaultAIYPort
func NewAIYScanner(d *Discovery, port int) *AIYScanner {
	if port <= 0 {
		port = DefaultAIYPort
	}
	return &AIYScanner{discovery: d, service: ServiceSSH, port: port}
}

func (s *AIYScanner) Kind() device.Kind { return device.KindWS }

// Scan 重新浏览后筛选主机名含 raspberry/aiy 的条目
func (s *AIYScanner) Scan(ctx context.Context) ([]device.Info, error) {
	err := s.discovery.ForceDiscovery(ctx)
	hosts := s.discovery.GetServiceList(s.service)
	out := make([]device.Info, 0, len(hosts))
	for _, h := range hosts {
		family, _ := device.GuessFamily(h.Instance + " " + h.Host)
		if family != device.FamilyAIY || h.Addr == "" {
			continue
		}
		name := strings.TrimSuffix(h.Host, ".")
		out = append(out, device.Info{
			ID:      "ws:" + name,
			Name:    name,
			Address: fmt.Sprintf("ws://%s:%d/", h.Addr, s.port),
			Kind:    device.KindWS,
			Family:  device.FamilyAIY,
		})
	}
	// 浏览部分失败时仍返回已有结果
	return out, err
}
