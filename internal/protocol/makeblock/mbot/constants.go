package mbot

// 板载端口（mCore）
const (
	PortLineFollower byte = 0x02
	PortUltrasonic   byte = 0x03
	PortLightOnBoard byte = 0x06
	PortOnBoard      byte = 0x07 // 板载 RGB 与按键
	PortMotorLeft    byte = 0x09 // M1
	PortMotorRight   byte = 0x0A // M2

	SlotRGB byte = 0x02
)

// LED 位置：0 为全部，1 右，2 左
const (
	LEDAll   = 0
	LEDRight = 1
	LEDLeft  = 2
)

// Family 设备族名称
const Family = "mbot"
