package makeblock

// 帧头与帧尾
const (
	Header1 byte = 0xFF
	Header2 byte = 0x55
	Tail1   byte = 0x0D
	Tail2   byte = 0x0A
)

// Action 动作字节
type Action byte

const (
	ActionGet   Action = 0x01
	ActionRun   Action = 0x02
	ActionReset Action = 0x04
	ActionStart Action = 0x05
)

// Device 设备类型字节（Orion/Auriga 固件）
type Device byte

const (
	DeviceVersion            Device = 0x00
	DeviceUltrasonic         Device = 0x01
	DeviceTemperature        Device = 0x02
	DeviceLightSensor        Device = 0x03
	DevicePotentiometer      Device = 0x04
	DeviceJoystick           Device = 0x05
	DeviceGyro               Device = 0x06
	DeviceSound              Device = 0x07
	DeviceRGBLed             Device = 0x08
	DeviceSevenSeg           Device = 0x09
	DeviceMotor              Device = 0x0A
	DeviceServo              Device = 0x0B
	DeviceEncoder            Device = 0x0C
	DeviceIR                 Device = 0x0D
	DevicePIR                Device = 0x0F
	DeviceLineFollower       Device = 0x11
	DeviceTemperatureOnBoard Device = 0x1B
	DeviceTone               Device = 0x22
	DeviceButtonInner        Device = 0x23
	DeviceEncoderBoard       Device = 0x3D
	DeviceEncoderPIDMotion   Device = 0x3E
)

// ValueType 应答数据类型
type ValueType byte

const (
	TypeByte   ValueType = 0x01
	TypeFloat  ValueType = 0x02
	TypeShort  ValueType = 0x03
	TypeString ValueType = 0x04
	TypeDouble ValueType = 0x05
	TypeLong   ValueType = 0x06
)

// 传感器请求序号：应答原样带回，用于区分数据来源
// 控制类命令使用 IndexNone
const (
	IndexNone         byte = 0x00
	IndexVersion      byte = 0x01
	IndexUltrasonic   byte = 0x02
	IndexLightSensor  byte = 0x03
	IndexLightSensor2 byte = 0x04
	IndexLineFollower byte = 0x05
	IndexButton       byte = 0x06
	IndexTemperature  byte = 0x07
	IndexGyroX        byte = 0x08
	IndexGyroY        byte = 0x09
	IndexGyroZ        byte = 0x0A
)
