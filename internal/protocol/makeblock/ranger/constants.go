package ranger

// 板载端口（Auriga）
const (
	PortRGBOnBoard   byte = 0x00
	PortLineFollower byte = 0x09
	PortUltrasonic   byte = 0x0A
	PortLight2       byte = 0x0B
	PortLight1       byte = 0x0C
	PortTemperature  byte = 0x0D
	PortGyro         byte = 0x01
	PinBuzzer        byte = 0x2D

	SlotRGB      byte = 0x02
	SlotMotorOne byte = 0x01
	SlotMotorTwo byte = 0x02
)

// LEDCount 板载 LED 环数量，索引 0 表示全部
const LEDCount = 12

// 陀螺仪轴
const (
	AxisX = 1
	AxisY = 2
	AxisZ = 3
)

// Family 设备族名称
const Family = "ranger"
