package server

import "time"

// DefaultTickInterval 默认 Tick 周期，约 60Hz
const DefaultTickInterval = 16666 * time.Microsecond

// loop 权威 Tick 循环：非阻塞清空扇入队列 → 处理事件 → 睡到截止时刻
// 每个 Tick 的截止时刻都从同一个起点推算（tick * 周期），
// 偶发的短暂超时不会累计成漂移；人数归零即退出
func (m *Match) loop() {
	start := time.Now()
	var tick int64

	for {
		tick++
		tickStart := time.Now()
		m.drainEvents()
		m.metrics.AddTick(time.Since(tickStart).Nanoseconds())

		deadline := time.Duration(tick) * m.cfg.TickInterval
		if elapsed := time.Since(start); elapsed < deadline {
			time.Sleep(deadline - elapsed)
		}

		// 离场条件：所有槽位已空，无需额外清理
		if m.registry.Count() == 0 {
			Log.Infof("match %d: population reached zero after %d ticks", m.cfg.MatchID, tick)
			return
		}
	}
}

// drainEvents 处理当前帧积压的全部扇入事件（非阻塞 drain）
// 队列为空时立即返回，不等待新事件
func (m *Match) drainEvents() {
	for {
		select {
		case ev := <-m.events:
			m.processEvent(ev)
		default:
			return
		}
	}
}
