package server

import (
	"testing"
	"time"
)

// echoClock 模拟一个时钟偏快 skew 的客户端应答探测
func echoClock(t *testing.T, st SerializationType, stream *fakeStream, sink *fakeSink, skew time.Duration) {
	t.Helper()
	go func() {
		for f := range sink.sent {
			tag, err := DecodeTag(st, f.Data)
			if err != nil || tag != MsgClockProbe {
				continue
			}
			var p ClockProbe
			if err := DecodeMessage(st, MsgClockProbe, f.Data, &p); err != nil {
				continue
			}
			echo := &ClockEcho{
				Seq:        p.Seq,
				ServerTime: p.ServerTime,
				ClientTime: time.Now().Add(skew).UnixMicro(),
			}
			b, err := EncodeMessage(st, MsgClockEcho, echo)
			if err != nil {
				continue
			}
			stream.frames <- Frame{Binary: true, Data: b}
		}
	}()
}

func TestSyncClockEstimatesOffset(t *testing.T) {
	stream, sink := newFakeStream(), newFakeSink()
	skew := 50 * time.Millisecond
	echoClock(t, SerJSON, stream, sink, skew)

	off, err := SyncClock(5, SerJSON, stream, sink)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	// 本地往返耗时应远小于偏差本身，估计值落在偏差附近
	if off < skew-20*time.Millisecond || off > skew+20*time.Millisecond {
		t.Fatalf("offset = %s, want ~%s", off, skew)
	}
	close(sink.sent)
}

func TestSyncClockZeroProbesSkips(t *testing.T) {
	stream, sink := newFakeStream(), newFakeSink()
	off, err := SyncClock(0, SerJSON, stream, sink)
	if err != nil || off != 0 {
		t.Fatalf("got %s, %v; want 0, nil", off, err)
	}
}

func TestSyncClockFailureFallsBackToZero(t *testing.T) {
	stream, sink := newFakeStream(), newFakeSink()
	close(stream.frames) // 对端立即断开

	off, err := SyncClock(3, SerJSON, stream, sink)
	if err == nil {
		t.Fatalf("expected error from closed stream")
	}
	if off != 0 {
		t.Fatalf("offset = %s, want 0 on failure", off)
	}
}
