package ev3

import "fmt"

// 命令类型
const (
	DirectCommandReply   byte = 0x00
	DirectCommandNoReply byte = 0x80
	DirectReply          byte = 0x02
	DirectReplyError     byte = 0x04
)

// 参数编码前缀
const (
	lc1 byte = 0x81
	lc2 byte = 0x82
	lc4 byte = 0x83
	lcs byte = 0x84
	gv0 byte = 0x60
	gv1 byte = 0xE1
)

// 操作码
const (
	OpUIWrite          byte = 0x82
	OpUIDraw           byte = 0x84
	OpSound            byte = 0x94
	OpInputDevice      byte = 0x99
	OpInputReadSI      byte = 0x9D
	OpOutputStop       byte = 0xA3
	OpOutputPower      byte = 0xA4
	OpOutputSpeed      byte = 0xA5
	OpOutputStart      byte = 0xA6
	OpOutputStepPower  byte = 0xAC
	OpOutputStepSpeed  byte = 0xAE
	OpOutputStepSync   byte = 0xB0
	OpOutputClearCount byte = 0xB2
	OpOutputGetCount   byte = 0xB3
)

// 子命令
const (
	UIWriteLED byte = 0x1B

	UIDrawUpdate     byte = 0x00
	UIDrawFillWindow byte = 0x13
	UIDrawBmpFile    byte = 0x1C

	SoundTone byte = 0x01
	SoundPlay byte = 0x02

	InputGetTypeMode byte = 0x05
	InputReadyRaw    byte = 0x1C
	InputReadySI     byte = 0x1D
)

// OutputPort 输出端口位掩码，可组合
type OutputPort byte

const (
	PortA   OutputPort = 0x01
	PortB   OutputPort = 0x02
	PortC   OutputPort = 0x04
	PortD   OutputPort = 0x08
	PortAll OutputPort = 0x0F
)

// Index 返回单个端口序号（A=0），组合端口返回 -1
func (p OutputPort) Index() int {
	switch p {
	case PortA:
		return 0
	case PortB:
		return 1
	case PortC:
		return 2
	case PortD:
		return 3
	}
	return -1
}

// Ports 拆分组合端口
func (p OutputPort) Ports() []OutputPort {
	var out []OutputPort
	for _, one := range []OutputPort{PortA, PortB, PortC, PortD} {
		if p&one != 0 {
			out = append(out, one)
		}
	}
	return out
}

func (p OutputPort) String() string {
	s := ""
	for i, one := range []OutputPort{PortA, PortB, PortC, PortD} {
		if p&one != 0 {
			s += string(rune('A' + i))
		}
	}
	if s == "" {
		return fmt.Sprintf("0x%02X", byte(p))
	}
	return s
}

// InputPort 输入端口序号：传感器 0..3（面板 1..4），电机作为输入时为 16..19
type InputPort byte

const (
	Input1 InputPort = 0x00
	Input2 InputPort = 0x01
	Input3 InputPort = 0x02
	Input4 InputPort = 0x03
	InputA InputPort = 0x10
	InputB InputPort = 0x11
	InputC InputPort = 0x12
	InputD InputPort = 0x13
)

// AllInputs 设备类型查询的端口顺序
var AllInputs = []InputPort{Input1, Input2, Input3, Input4, InputA, InputB, InputC, InputD}

func (p InputPort) String() string {
	if p >= InputA {
		return string(rune('A' + int(p-InputA)))
	}
	return fmt.Sprintf("%d", int(p)+1)
}

// DeviceType 设备类型
type DeviceType byte

const (
	TypeNXTTouch       DeviceType = 1
	TypeNXTLight       DeviceType = 2
	TypeNXTSound       DeviceType = 3
	TypeNXTColor       DeviceType = 4
	TypeNXTUltrasonic  DeviceType = 5
	TypeNXTTemperature DeviceType = 6
	TypeLargeMotor     DeviceType = 7
	TypeMediumMotor    DeviceType = 8
	TypeTouch          DeviceType = 16
	TypeColor          DeviceType = 29
	TypeUltrasonic     DeviceType = 30
	TypeGyro           DeviceType = 32
	TypeIR             DeviceType = 33
	TypeNone           DeviceType = 126
	TypePortError      DeviceType = 127
)

var deviceTypeNames = map[DeviceType]string{
	TypeNXTTouch:       "nxt-touch",
	TypeNXTLight:       "nxt-light",
	TypeNXTSound:       "nxt-sound",
	TypeNXTColor:       "nxt-color",
	TypeNXTUltrasonic:  "nxt-ultrasonic",
	TypeNXTTemperature: "nxt-temperature",
	TypeLargeMotor:     "large-motor",
	TypeMediumMotor:    "medium-motor",
	TypeTouch:          "touch",
	TypeColor:          "color",
	TypeUltrasonic:     "ultrasonic",
	TypeGyro:           "gyro",
	TypeIR:             "ir",
	TypeNone:           "none",
	TypePortError:      "port-error",
}

func (t DeviceType) String() string {
	if n, ok := deviceTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", byte(t))
}

// IsSensor 是否为可读数的传感器
func (t DeviceType) IsSensor() bool {
	switch t {
	case TypeLargeMotor, TypeMediumMotor, TypeNone, TypePortError, 0:
		return false
	}
	return true
}

// LEDPattern 按键背光模式
type LEDPattern int

const (
	LEDOff LEDPattern = iota
	LEDGreen
	LEDRed
	LEDOrange
	LEDGreenFlash
	LEDRedFlash
	LEDOrangeFlash
	LEDGreenPulse
	LEDRedPulse
	LEDOrangePulse
)

// Family 设备族名称
const Family = "ev3"
