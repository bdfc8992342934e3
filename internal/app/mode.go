package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/config"
	"github.com/taoyao-code/cwc-bridge/internal/connection"
	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/metrics"
	"github.com/taoyao-code/cwc-bridge/internal/mode"
)

// NewReconnectManager 未启用时返回 nil
func NewReconnectManager(cfg config.ReconnectConfig, appm *metrics.AppMetrics, log *zap.Logger) *connection.Manager {
	if !cfg.Enable {
		return nil
	}
	m := connection.New(connection.Config{
		Strategy: connection.Strategy(cfg.Strategy),
		Interval: cfg.Interval,
		MaxDelay: cfg.MaxDelay,
	}, log.Named("reconnect"))
	if appm != nil {
		m.OnAttempt = appm.ObserveReconnect
	}
	return m
}

// NewModeOptions 当前模式的设备由重连管理器守护
func NewModeOptions(ctx context.Context, cfg config.ModeConfig, reconnect *connection.Manager, appm *metrics.AppMetrics) mode.Options {
	opts := mode.Options{
		AutoMonitor: cfg.AutoMonitor,
		EV3ReplyTTL: cfg.EV3ReplyTTL,
	}
	if appm != nil {
		opts.OnPoll = appm.ObservePoll
	}
	if reconnect != nil {
		opts.OnActivate = func(d *device.Device) { reconnect.Watch(ctx, d) }
		opts.OnDeactivate = func(d *device.Device) { reconnect.Unwatch(d.ID()) }
	}
	return opts
}
