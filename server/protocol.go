package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// 协议号：与客户端约定的消息类型标签
const (
	MsgWhoami byte = iota + 1
	MsgClockProbe
	MsgClockEcho
	MsgPlayerStart
	MsgDisconnect
)

// whoami 角色值，首帧必须自报为客户端才会被准入
const (
	WhoamiUnknown byte = 0
	WhoamiClient  byte = 1
)

// SerializationType 每场比赛的序列化模式（建赛时确定，不可热更）
type SerializationType int

const (
	SerJSON SerializationType = iota
	SerBinary
)

// ParseSerialization 解析配置里的序列化模式名
func ParseSerialization(s string) (SerializationType, error) {
	switch s {
	case "", "json":
		return SerJSON, nil
	case "binary":
		return SerBinary, nil
	}
	return SerJSON, fmt.Errorf("unknown serialization type %q", s)
}

// Frame 一帧传输数据；核心只关心是否二进制帧与载荷本身
type Frame struct {
	Binary bool
	Data   []byte
}

// Envelope JSON 模式下的外层信封
type Envelope struct {
	Type    byte            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Whoami 握手首帧：连接方自报角色
type Whoami struct {
	Role byte `json:"role"`
}

// ClockProbe 服务端发出的时钟探测
type ClockProbe struct {
	Seq        uint32 `json:"seq"`
	ServerTime int64  `json:"serverTime"` // 微秒时间戳
}

// ClockEcho 客户端对探测的应答，附带客户端本地时间
type ClockEcho struct {
	Seq        uint32 `json:"seq"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// PlayerStart 开赛消息：实体 id 段、出生点、可见范围与世界种子
// 客户端凭种子可确定性复现世界状态
type PlayerStart struct {
	EntityID uint32 `json:"entityId"`
	X        int32  `json:"x"`
	Y        int32  `json:"y"`
	Range    uint16 `json:"range"`
	Seed     uint32 `json:"seed"`
}

// Disconnect 服务端主动断开前的通知
type Disconnect struct {
	Reason string `json:"reason"`
}

// EncodeMessage 按比赛的序列化模式编码一条消息
func EncodeMessage(st SerializationType, tag byte, msg any) ([]byte, error) {
	if st == SerJSON {
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(Envelope{Type: tag, Payload: payload})
	}
	return encodeBinary(tag, msg)
}

// DecodeTag 只解出消息类型标签，载荷留给按型解码
func DecodeTag(st SerializationType, data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty message")
	}
	if st == SerJSON {
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return 0, err
		}
		return env.Type, nil
	}
	return data[0], nil
}

// DecodeMessage 按标签解码整条消息到 out（out 必须是对应消息结构体指针）
func DecodeMessage(st SerializationType, tag byte, data []byte, out any) error {
	got, err := DecodeTag(st, data)
	if err != nil {
		return err
	}
	if got != tag {
		return fmt.Errorf("expected message tag %d, got %d", tag, got)
	}
	if st == SerJSON {
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		if len(env.Payload) == 0 {
			return fmt.Errorf("empty payload for tag %d", tag)
		}
		return json.Unmarshal(env.Payload, out)
	}
	return decodeBinary(tag, data[1:], out)
}

// 二进制布局统一小端，首字节为标签
func encodeBinary(tag byte, msg any) ([]byte, error) {
	buf := []byte{tag}
	switch m := msg.(type) {
	case *Whoami:
		buf = append(buf, m.Role)
	case *ClockProbe:
		buf = binary.LittleEndian.AppendUint32(buf, m.Seq)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(m.ServerTime))
	case *ClockEcho:
		buf = binary.LittleEndian.AppendUint32(buf, m.Seq)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(m.ServerTime))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(m.ClientTime))
	case *PlayerStart:
		buf = binary.LittleEndian.AppendUint32(buf, m.EntityID)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m.X))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Y))
		buf = binary.LittleEndian.AppendUint16(buf, m.Range)
		buf = binary.LittleEndian.AppendUint32(buf, m.Seed)
	case *Disconnect:
		if len(m.Reason) > 0xffff {
			return nil, fmt.Errorf("disconnect reason too long")
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(m.Reason)))
		buf = append(buf, m.Reason...)
	default:
		return nil, fmt.Errorf("cannot encode message type %T", msg)
	}
	return buf, nil
}

func decodeBinary(tag byte, data []byte, out any) error {
	short := fmt.Errorf("short message for tag %d", tag)
	switch m := out.(type) {
	case *Whoami:
		if len(data) < 1 {
			return short
		}
		m.Role = data[0]
	case *ClockProbe:
		if len(data) < 12 {
			return short
		}
		m.Seq = binary.LittleEndian.Uint32(data)
		m.ServerTime = int64(binary.LittleEndian.Uint64(data[4:]))
	case *ClockEcho:
		if len(data) < 20 {
			return short
		}
		m.Seq = binary.LittleEndian.Uint32(data)
		m.ServerTime = int64(binary.LittleEndian.Uint64(data[4:]))
		m.ClientTime = int64(binary.LittleEndian.Uint64(data[12:]))
	case *PlayerStart:
		if len(data) < 18 {
			return short
		}
		m.EntityID = binary.LittleEndian.Uint32(data)
		m.X = int32(binary.LittleEndian.Uint32(data[4:]))
		m.Y = int32(binary.LittleEndian.Uint32(data[8:]))
		m.Range = binary.LittleEndian.Uint16(data[12:])
		m.Seed = binary.LittleEndian.Uint32(data[14:])
	case *Disconnect:
		if len(data) < 2 {
			return short
		}
		n := int(binary.LittleEndian.Uint16(data))
		if len(data) < 2+n {
			return short
		}
		m.Reason = string(data[2 : 2+n])
	default:
		return fmt.Errorf("cannot decode message type %T", out)
	}
	return nil
}
