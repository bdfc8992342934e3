package mdns

import (
	"context"
	"time"

	"github.com/hashicorp/mdns"
)

// HashicorpBrowser 基于 hashicorp/mdns 的浏览器
type HashicorpBrowser struct {
	Timeout time.Duration
}

// Browse 发送查询并收集 Timeout 内的应答
func (b HashicorpBrowser) Browse(ctx context.Context, full string) ([]Host, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	service, domain := splitService(full)
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(service)
	params.Domain = domain
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	var hosts []Host
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			h := Host{Instance: e.Name, Host: e.Host, Port: e.Port, Info: e.InfoFields}
			if e.AddrV4 != nil {
				h.Addr = e.AddrV4.String()
			} else if e.AddrV6 != nil {
				h.Addr = e.AddrV6.String()
			}
			hosts = append(hosts, h)
		}
	}()
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return nil, err
	}
	return hosts, nil
}
