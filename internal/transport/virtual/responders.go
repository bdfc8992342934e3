package virtual

import (
	"encoding/binary"
	"math"

	"github.com/taoyao-code/cwc-bridge/internal/device"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/makeblock"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/sphero"
)

// ResponderFor 返回设备族的模拟应答器，未知族返回 nil
func ResponderFor(family string) Responder {
	switch family {
	case device.FamilySphero:
		return Sphero
	case device.FamilyMBot, device.FamilyRanger:
		return Makeblock
	}
	return nil
}

// Sphero 模拟 Sphero：需要应答的命令回复 OK，定位器查询回复固定坐标
func Sphero(frame []byte) [][]byte {
	if len(frame) < 7 || frame[0] != sphero.SOP1 || frame[1] != sphero.SOP2Answer {
		return nil
	}
	cb := sphero.CallbackType(frame[4])
	var data []byte
	switch cb {
	case sphero.CallbackLocation:
		data = []byte{0x00, 0x0A, 0x00, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	case sphero.CallbackRGB:
		data = []byte{0x00, 0x00, 0xFF}
	case sphero.CallbackPowerState:
		data = []byte{0x01, 0x02, 0x02, 0xEE, 0x00, 0x01, 0x00, 0x3C}
	case sphero.CallbackVersion:
		data = []byte{0x01, 0x03, 0x01, 0x03, 0x22}
	}
	out := []byte{sphero.SOP1, sphero.SOP2Answer, sphero.RespOK, byte(cb), byte(len(data) + 1)}
	out = append(out, data...)
	return [][]byte{append(out, sphero.Checksum(out[2:]))}
}

// Makeblock 模拟 mCore/Auriga：运行类命令回复确认，读取类命令回复固定数值
func Makeblock(frame []byte) [][]byte {
	if len(frame) < 5 || frame[0] != makeblock.Header1 || frame[1] != makeblock.Header2 {
		return nil
	}
	index, action := frame[3], makeblock.Action(frame[4])
	if action != makeblock.ActionGet {
		return [][]byte{{makeblock.Header1, makeblock.Header2, makeblock.Tail1, makeblock.Tail2}}
	}
	if index == makeblock.IndexVersion {
		v := "09.01.016"
		out := []byte{makeblock.Header1, makeblock.Header2, index, byte(makeblock.TypeString), byte(len(v))}
		out = append(out, v...)
		return [][]byte{append(out, makeblock.Tail1, makeblock.Tail2)}
	}
	value := float32(42)
	if index == makeblock.IndexLineFollower {
		value = 3
	}
	out := []byte{makeblock.Header1, makeblock.Header2, index, byte(makeblock.TypeFloat)}
	out = binary.LittleEndian.AppendUint32(out, math.Float32bits(value))
	return [][]byte{append(out, makeblock.Tail1, makeblock.Tail2)}
}
