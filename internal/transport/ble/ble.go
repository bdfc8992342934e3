// Package ble 低功耗蓝牙链路：GATT 写特征 + 通知特征
package ble

import (
	"context"
	"errors"
	"strings"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

var (
	// ErrNoProfile 设备族没有 GATT 配置
	ErrNoProfile = errors.New("ble: no gatt profile for device")
	// ErrCharacteristicNotFound 服务或特征不存在
	ErrCharacteristicNotFound = errors.New("ble: characteristic not found")
)

// Advertisement 扫描结果
type Advertisement struct {
	Address string
	Name    string
	RSSI    int
}

// Central 主机侧蓝牙适配器
type Central interface {
	Enable() error
	// Scan 扫描直到 ctx 结束
	Scan(ctx context.Context) ([]Advertisement, error)
	Connect(ctx context.Context, address string) (Peripheral, error)
}

// Peripheral 已连接的外设
type Peripheral interface {
	Characteristic(service, char string) (Characteristic, error)
	// OnDisconnect 注册远端断开回调，回调在蓝牙栈线程中执行
	OnDisconnect(fn func())
	Disconnect() error
}

// Characteristic GATT 特征
type Characteristic interface {
	Write(p []byte) error
	Notify(fn func([]byte)) error
}

// WakeWrite 连接后依次写入的握手数据
type WakeWrite struct {
	Service string
	Char    string
	Data    []byte
}

// Profile 设备族的 GATT 布局
type Profile struct {
	Name    string
	Service string
	Write   string
	Notify  string
	Wake    []WakeWrite
	// 单次写入上限，默认 20（最小 ATT MTU）
	Chunk int
}

const (
	spheroBLEService     = "22bb746f-2bb0-7554-2d6f-726568705327"
	spheroControlService = "22bb746f-2ba0-7554-2d6f-726568705327"
	makeblockService     = "0000ffe1-0000-1000-8000-00805f9b34fb"
)

// SpheroV1 SPRK+/BB-8：先写防 DoS 口令、发射功率与唤醒位
var SpheroV1 = Profile{
	Name:    "sphero-v1",
	Service: spheroControlService,
	Write:   "22bb746f-2ba1-7554-2d6f-726568705327",
	Notify:  "22bb746f-2ba6-7554-2d6f-726568705327",
	Wake: []WakeWrite{
		{Service: spheroBLEService, Char: "22bb746f-2bbd-7554-2d6f-726568705327", Data: []byte("011i3")},
		{Service: spheroBLEService, Char: "22bb746f-2bb2-7554-2d6f-726568705327", Data: []byte{0x07}},
		{Service: spheroBLEService, Char: "22bb746f-2bbf-7554-2d6f-726568705327", Data: []byte{0x01}},
	},
}

// Makeblock mBot/Ranger 蓝牙模块透传
var Makeblock = Profile{
	Name:    "makeblock",
	Service: makeblockService,
	Write:   "0000ffe3-0000-1000-8000-00805f9b34fb",
	Notify:  "0000ffe2-0000-1000-8000-00805f9b34fb",
}

// ProfileFor 按设备族选择 GATT 配置
func ProfileFor(info device.Info) (Profile, error) {
	switch info.Family {
	case device.FamilySphero:
		return SpheroV1, nil
	case device.FamilyMBot, device.FamilyRanger:
		return Makeblock, nil
	}
	return Profile{}, ErrNoProfile
}

// UUID 比较忽略大小写
func sameUUID(a, b string) bool { return strings.EqualFold(a, b) }
