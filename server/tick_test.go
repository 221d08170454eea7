package server

import (
	"testing"
	"time"
)

func newLoopMatch(t *testing.T, interval time.Duration) *Match {
	t.Helper()
	cfg := testConfig(1)
	cfg.TickInterval = interval
	m, err := NewMatch(cfg, MatchComms{})
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return m
}

// 空队列的 drain 是无操作，绝不阻塞主循环
func TestDrainEmptyQueueDoesNotBlock(t *testing.T) {
	m := newLoopMatch(t, DefaultTickInterval)
	done := make(chan struct{})
	go func() {
		m.drainEvents()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("drain of empty queue blocked")
	}
	if got := m.Metrics().Snapshot()["events_processed"]; got != int64(0) {
		t.Fatalf("events_processed = %v, want 0", got)
	}
}

// 循环退出不早于最后一个 Tick 的绝对截止时刻（固定起点，无漂移）
func TestLoopHonorsFixedOriginDeadlines(t *testing.T) {
	interval := 10 * time.Millisecond
	m := newLoopMatch(t, interval)

	id, _ := m.registry.AllocID()
	m.registry.Seat(&Player{ID: id, Sink: newFakeSink()})

	done := make(chan struct{})
	start := time.Now()
	go func() {
		m.loop()
		close(done)
	}()

	// 第 4 个周期内离场：循环应在完整睡满当时的 Tick 后才退出
	time.Sleep(3*interval + interval/2)
	m.events <- ConnEvent{Kind: ConnClose, PlayerID: id}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not exit after population reached zero")
	}
	elapsed := time.Since(start)

	ticks := m.Metrics().Snapshot()["tick_count"].(int64)
	if ticks < 4 {
		t.Fatalf("tick_count = %d, want >= 4", ticks)
	}
	// 每个 Tick 都睡到 tick*interval 的截止时刻，总时长不会低于它
	if floor := time.Duration(ticks) * interval; elapsed < floor {
		t.Fatalf("loop exited after %s, want >= %s for %d ticks", elapsed, floor, ticks)
	}
}
