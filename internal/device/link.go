package device

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected 设备未连接
	ErrNotConnected = errors.New("device not connected")
	// ErrBusy 正在连接或断开
	ErrBusy = errors.New("device busy")
	// ErrUnknownDevice 注册表中不存在
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNoTransport 没有对应类型的链路工厂
	ErrNoTransport = errors.New("no transport for device kind")
	// ErrLinkClosed 链路已关闭
	ErrLinkClosed = errors.New("link closed")
	// ErrConnectAborted 连接过程中被断开
	ErrConnectAborted = errors.New("connect aborted")
)

// Kind 传输类型
type Kind string

const (
	KindSerial  Kind = "serial"
	KindBLE     Kind = "ble"
	KindTCP     Kind = "tcp"
	KindWS      Kind = "ws"
	KindVirtual Kind = "virtual"
)

// Info 设备描述，由扫描器产生
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Kind    Kind   `json:"kind"`
	Family  string `json:"family,omitempty"` // sphero/mbot/ranger/ev3/aiy，无法判断时为空
	Variant string `json:"variant,omitempty"`
	RSSI    int    `json:"rssi,omitempty"`
}

// Link 传输链路，由 transport 包实现
// Reads 返回的通道在链路结束时关闭；Open 之后才有效
type Link interface {
	Open(ctx context.Context) error
	Close() error
	Write(ctx context.Context, p []byte) error
	Reads() <-chan []byte
}

// Erring 可选接口：链路结束后的原因
type Erring interface {
	Err() error
}
