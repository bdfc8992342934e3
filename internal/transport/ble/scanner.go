package ble

import (
	"context"
	"time"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

// Scanner BLE 扫描器，只保留能识别设备族的广播
type Scanner struct {
	central Central
	timeout time.Duration
}

// NewScanner timeout 为单次扫描时长，默认 5s
func NewScanner(central Central, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Scanner{central: central, timeout: timeout}
}

func (s *Scanner) Kind() device.Kind { return device.KindBLE }

// Scan 扫描 timeout 时长；同一地址保留最后一次结果
func (s *Scanner) Scan(ctx context.Context) ([]device.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ads, err := s.central.Scan(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int, len(ads))
	out := make([]device.Info, 0, len(ads))
	for _, ad := range ads {
		family, variant := device.GuessFamily(ad.Name)
		if family == "" || family == device.FamilyEV3 || family == device.FamilyAIY {
			continue
		}
		info := device.Info{
			ID:      "ble:" + ad.Address,
			Name:    ad.Name,
			Address: ad.Address,
			Kind:    device.KindBLE,
			Family:  family,
			Variant: variant,
			RSSI:    ad.RSSI,
		}
		if i, ok := seen[info.ID]; ok {
			out[i] = info
			continue
		}
		seen[info.ID] = len(out)
		out = append(out, info)
	}
	return out, nil
}
