package server

import "time"

// PlayerID 表示玩家在比赛内的唯一标识，同时是槽位下标
type PlayerID int32

// PlayerStream 入站帧来源（网络读端），核心不关心底层传输
type PlayerStream interface {
	ReadFrame() (Frame, error)
	SetReadDeadline(t time.Time) error
}

// PlayerSink 出站帧去向（网络写端）
type PlayerSink interface {
	WriteFrame(f Frame) error
	Close() error
}

// Player 比赛内的玩家实体（服务端权威状态）
// 只能由准入流程创建、由比赛主循环销毁
type Player struct {
	ID PlayerID
	X  int32
	Y  int32

	// ClockDiff 与客户端的时钟偏差估计，同步失败时为零
	ClockDiff time.Duration

	Sink PlayerSink
}
