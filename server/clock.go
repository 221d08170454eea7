package server

import (
	"fmt"
	"time"
)

// 单次探测应答的等待上限，超时即放弃整个同步
const clockProbeTimeout = time.Second

// SyncClock 与新连接往返 probes 次探测，估算服务器与客户端的时钟偏差
// 在准入阶段、接收协程启动之前调用，因此可以直接读流
// 任何一次 I/O 失败或超时都整体回退为零偏差：同步是尽力而为，绝不阻塞准入
func SyncClock(probes int, st SerializationType, stream PlayerStream, sink PlayerSink) (time.Duration, error) {
	if probes <= 0 {
		return 0, nil
	}
	defer stream.SetReadDeadline(time.Time{})

	var total time.Duration
	for i := 0; i < probes; i++ {
		seq := uint32(i + 1)
		t0 := time.Now()
		b, err := EncodeMessage(st, MsgClockProbe, &ClockProbe{
			Seq:        seq,
			ServerTime: t0.UnixMicro(),
		})
		if err != nil {
			return 0, err
		}
		if err := sink.WriteFrame(Frame{Binary: true, Data: b}); err != nil {
			return 0, fmt.Errorf("clock probe %d send: %w", seq, err)
		}

		if err := stream.SetReadDeadline(time.Now().Add(clockProbeTimeout)); err != nil {
			return 0, err
		}
		f, err := stream.ReadFrame()
		if err != nil {
			return 0, fmt.Errorf("clock probe %d recv: %w", seq, err)
		}
		var echo ClockEcho
		if err := DecodeMessage(st, MsgClockEcho, f.Data, &echo); err != nil {
			return 0, fmt.Errorf("clock probe %d decode: %w", seq, err)
		}
		if echo.Seq != seq {
			return 0, fmt.Errorf("clock probe %d: echo out of order (seq %d)", seq, echo.Seq)
		}

		// 假定往返对称：客户端时刻对应服务端的 t0 + rtt/2
		rtt := time.Since(t0)
		midpoint := t0.Add(rtt / 2).UnixMicro()
		total += time.Duration(echo.ClientTime-midpoint) * time.Microsecond
	}
	return total / time.Duration(probes), nil
}
