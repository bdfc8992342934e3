package sphero

import "fmt"

// 帧头
const (
	SOP1         byte = 0xFF
	SOP2Answer   byte = 0xFF // 请求设备应答；应答帧同样使用该值
	SOP2NoAnswer byte = 0xFE // 不需要应答；异步消息同样使用该值
)

// 设备标识 (DID)
const (
	DeviceCore   byte = 0x00
	DeviceSphero byte = 0x02
)

// CommandID 命令标识：DID + CID
type CommandID struct {
	DID byte
	CID byte
}

// Bytes 返回 [DID, CID]
func (c CommandID) Bytes() [2]byte { return [2]byte{c.DID, c.CID} }

func (c CommandID) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X:0x%02X", c.DID, c.CID)
}

// 命令表（Orbotix API v1）
var (
	CmdPing          = CommandID{DeviceCore, 0x01}
	CmdVersion       = CommandID{DeviceCore, 0x02}
	CmdSetName       = CommandID{DeviceCore, 0x10}
	CmdGetPowerState = CommandID{DeviceCore, 0x20}
	CmdSleep         = CommandID{DeviceCore, 0x22}

	CmdSetHeading         = CommandID{DeviceSphero, 0x01}
	CmdSetStabilization   = CommandID{DeviceSphero, 0x02}
	CmdSetRotationRate    = CommandID{DeviceSphero, 0x03}
	CmdConfigureCollision = CommandID{DeviceSphero, 0x12}
	CmdConfigureLocator   = CommandID{DeviceSphero, 0x13}
	CmdReadLocator        = CommandID{DeviceSphero, 0x15}
	CmdSetRGBLed          = CommandID{DeviceSphero, 0x20}
	CmdSetBackLed         = CommandID{DeviceSphero, 0x21}
	CmdGetRGBLed          = CommandID{DeviceSphero, 0x22}
	CmdRoll               = CommandID{DeviceSphero, 0x30}
	CmdBoost              = CommandID{DeviceSphero, 0x31}
	CmdSetRawMotors       = CommandID{DeviceSphero, 0x33}
	CmdSetMotionTimeout   = CommandID{DeviceSphero, 0x34}
)

var commandNames = map[CommandID]string{
	CmdPing:               "ping",
	CmdVersion:            "version",
	CmdSetName:            "set_name",
	CmdGetPowerState:      "get_power_state",
	CmdSleep:              "sleep",
	CmdSetHeading:         "set_heading",
	CmdSetStabilization:   "set_stabilization",
	CmdSetRotationRate:    "set_rotation_rate",
	CmdConfigureCollision: "configure_collision",
	CmdConfigureLocator:   "configure_locator",
	CmdReadLocator:        "read_locator",
	CmdSetRGBLed:          "set_rgb_led",
	CmdSetBackLed:         "set_back_led",
	CmdGetRGBLed:          "get_rgb_led",
	CmdRoll:               "roll",
	CmdBoost:              "boost",
	CmdSetRawMotors:       "set_raw_motors",
	CmdSetMotionTimeout:   "set_motion_timeout",
}

// CallbackType 写入序号字节 (SEQ)，设备应答时原样带回，用于区分应答类型
// CallbackNone 表示不需要应答
type CallbackType byte

const (
	CallbackNone       CallbackType = 0x00
	CallbackPing       CallbackType = 0x01
	CallbackVersion    CallbackType = 0x02
	CallbackPowerState CallbackType = 0x03
	CallbackRGB        CallbackType = 0x04
	CallbackLocation   CallbackType = 0x05
)

// 应答码 (MRSP)
const (
	RespOK          byte = 0x00
	RespGeneral     byte = 0x01
	RespChecksum    byte = 0x02
	RespFragment    byte = 0x03
	RespBadCommand  byte = 0x04
	RespUnsupported byte = 0x05
	RespBadMessage  byte = 0x06
	RespParam       byte = 0x07
	RespExec        byte = 0x08
	RespBadDevice   byte = 0x09
	RespPowerNoGood byte = 0x31
	RespTimeout     byte = 0x35
)

// 异步消息标识
const (
	AsyncPowerNotification byte = 0x01
	AsyncLevel1Diagnostic  byte = 0x02
	AsyncSensorStreaming   byte = 0x03
	AsyncCollision         byte = 0x07
	AsyncSelfLevelResult   byte = 0x09
	AsyncGyroLimits        byte = 0x0B
)

// RollState roll 命令的状态字节
type RollState byte

const (
	RollStop RollState = 0x00
	RollGo   RollState = 0x01
)

// 原始电机模式
const (
	MotorOff     byte = 0x00
	MotorForward byte = 0x01
	MotorReverse byte = 0x02
	MotorBrake   byte = 0x03
	MotorIgnore  byte = 0x04
)

// Variant 设备型号：经典 Sphero (蓝牙串口) 与 v1 (SPRK+/BB-8，低功耗蓝牙)
// 两者帧格式一致，差异在传输层的唤醒握手
type Variant string

const (
	VariantClassic Variant = "classic"
	VariantV1      Variant = "v1"
)

// 电源状态
var powerStates = map[byte]string{
	0x01: "charging",
	0x02: "ok",
	0x03: "low",
	0x04: "critical",
}
