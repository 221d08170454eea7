package server

import (
	"sync/atomic"
)

// MatchMetrics 记录一场比赛运行期的关键指标（用于监控与调试）
type MatchMetrics struct {
	TickCount       int64 // 统计的 Tick 次数
	EventsProcessed int64 // 主循环消费的扇入事件数
	Admitted        int64 // 成功准入的玩家数
	Rejected        int64 // 握手不合格被拒的连接数
	ClockSyncFailed int64 // 时钟同步失败（回退零偏差）的次数
	Evicted         int64 // 因发送失败被逐出的玩家数
	TotalTickNs     int64 // Tick 累计耗时（纳秒）
}

func (m *MatchMetrics) IncEvents()          { atomic.AddInt64(&m.EventsProcessed, 1) }
func (m *MatchMetrics) IncAdmitted()        { atomic.AddInt64(&m.Admitted, 1) }
func (m *MatchMetrics) IncRejected()        { atomic.AddInt64(&m.Rejected, 1) }
func (m *MatchMetrics) IncClockSyncFailed() { atomic.AddInt64(&m.ClockSyncFailed, 1) }
func (m *MatchMetrics) IncEvicted()         { atomic.AddInt64(&m.Evicted, 1) }
func (m *MatchMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *MatchMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"events_processed":  atomic.LoadInt64(&m.EventsProcessed),
		"admitted":          atomic.LoadInt64(&m.Admitted),
		"rejected":          atomic.LoadInt64(&m.Rejected),
		"clock_sync_failed": atomic.LoadInt64(&m.ClockSyncFailed),
		"evicted":           atomic.LoadInt64(&m.Evicted),
		"avg_tick_ms":       avgMs,
	}
}
