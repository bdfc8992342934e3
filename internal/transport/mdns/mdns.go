// Package mdns 局域网服务发现：记录每个服务最近一次发现的主机
package mdns

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 默认关注的服务
const (
	ServiceCrosP2P = "_cros_p2p._tcp.local"
	ServiceSSH     = "_ssh._tcp.local"
)

// Host 发现的主机
type Host struct {
	Instance string   `json:"instance"`
	Host     string   `json:"host"`
	Addr     string   `json:"addr"`
	Port     int      `json:"port"`
	Info     []string `json:"info,omitempty"`
}

// HostPort addr:port
func (h Host) HostPort() string {
	return net.JoinHostPort(h.Addr, strconv.Itoa(h.Port))
}

// Browser 单次服务浏览
type Browser interface {
	Browse(ctx context.Context, service string) ([]Host, error)
}

// Discovery 服务 -> 主机列表
type Discovery struct {
	browser  Browser
	services []string
	log      *zap.Logger

	mu      sync.RWMutex
	hosts   map[string][]Host
	updated time.Time
}

// NewDiscovery services 为空时使用默认服务
func NewDiscovery(browser Browser, log *zap.Logger, services ...string) *Discovery {
	if len(services) == 0 {
		services = []string{ServiceCrosP2P, ServiceSSH}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Discovery{browser: browser, services: services, log: log, hosts: make(map[string][]Host)}
}

// Services 关注的服务
func (d *Discovery) Services() []string {
	return append([]string(nil), d.services...)
}

// ForceDiscovery 立即浏览全部服务；单个服务失败不影响其它服务，错误合并返回
func (d *Discovery) ForceDiscovery(ctx context.Context) error {
	var errs []error
	for _, svc := range d.services {
		hosts, err := d.browser.Browse(ctx, svc)
		if err != nil {
			d.log.Debug("mdns browse failed", zap.String("service", svc), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].Instance < hosts[j].Instance })
		d.mu.Lock()
		d.hosts[svc] = hosts
		d.mu.Unlock()
	}
	d.mu.Lock()
	d.updated = time.Now()
	d.mu.Unlock()
	return errors.Join(errs...)
}

// GetServiceList 最近一次结果，未知服务返回空切片
func (d *Discovery) GetServiceList(service string) []Host {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hosts := d.hosts[service]
	out := make([]Host, len(hosts))
	copy(out, hosts)
	return out
}

// LastUpdate 最近一次浏览时间
func (d *Discovery) LastUpdate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updated
}

// Run 定时浏览直到 ctx 结束
func (d *Discovery) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	_ = d.ForceDiscovery(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = d.ForceDiscovery(ctx)
		}
	}
}

// splitService "_ssh._tcp.local" -> ("_ssh._tcp", "local")
func splitService(full string) (service, domain string) {
	full = strings.TrimSuffix(full, ".")
	return strings.TrimSuffix(full, ".local"), "local"
}
