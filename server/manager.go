package server

import (
	"sync"
	"time"
)

// MatchManager 管理比赛实例的生命周期，并扮演大厅侧的移交端
type MatchManager struct {
	mu       sync.RWMutex
	defaults MatchConfig
	matches  map[uint32]*matchHandle
}

// matchHandle 一场在跑的比赛与它的大厅通道
type matchHandle struct {
	match *Match
	inbox chan LobbyEvent // 大厅 → 比赛
	acks  chan LobbyEvent // 比赛 → 大厅（开赛确认）
}

var (
	defaultManager *MatchManager
	once           sync.Once
)

// GetMatchManager 单例比赛管理器
func GetMatchManager() *MatchManager {
	once.Do(func() {
		defaultManager = &MatchManager{
			defaults: DefaultMatchConfig(0, 0, 1),
			matches:  make(map[uint32]*matchHandle),
		}
	})
	return defaultManager
}

// SetDefaults 设定新建比赛的默认配置（MatchID/Seed 按场覆盖）
func (m *MatchManager) SetDefaults(cfg MatchConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = cfg
}

// Defaults 当前默认配置的副本
func (m *MatchManager) Defaults() MatchConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// Lookup 按 id 查找在跑的比赛
func (m *MatchManager) Lookup(id uint32) (*Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.matches[id]
	if !ok {
		return nil, false
	}
	return h.match, true
}

// GetOrCreateMatch 获取或创建比赛，并确保其运行协程已启动
func (m *MatchManager) GetOrCreateMatch(id uint32) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.matches[id]; ok {
		return h.match, nil
	}

	cfg := m.defaults
	cfg.MatchID = id
	if cfg.Seed == 0 {
		// 种子未显式配置时按建赛时刻取值
		cfg.Seed = uint32(time.Now().UnixNano())
	}

	inbox := make(chan LobbyEvent, 8)
	acks := make(chan LobbyEvent, 1)
	match, err := NewMatch(cfg, MatchComms{RX: inbox, TX: acks})
	if err != nil {
		return nil, err
	}
	h := &matchHandle{match: match, inbox: inbox, acks: acks}
	m.matches[id] = h
	go m.runMatch(h)
	return match, nil
}

// runMatch 驱动一场比赛直至结束；比赛级致命错误记日志而不是崩溃进程
func (m *MatchManager) runMatch(h *matchHandle) {
	id := h.match.Config().MatchID
	go func() {
		// 大厅侧消费开赛确认
		for range h.acks {
			Log.Infof("match %d: start acknowledged to lobby", id)
		}
	}()

	if err := h.match.Run(); err != nil {
		Log.Errorf("match %d: terminated: %v", id, err)
	}
	close(h.acks) // Run 返回后比赛不再写 TX
	m.remove(id)
}

func (m *MatchManager) remove(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, id)
}

// Deliver 把新连接移交给目标比赛，比赛不存在时自动创建
// 比赛已不收新连接（入口拥塞或刚结束）时返回 false，由调用方关闭连接
func (m *MatchManager) Deliver(id uint32, conn *WSConn) bool {
	m.mu.RLock()
	h, ok := m.matches[id]
	m.mu.RUnlock()
	if !ok {
		if _, err := m.GetOrCreateMatch(id); err != nil {
			Log.Errorf("match %d: create failed: %v", id, err)
			return false
		}
		m.mu.RLock()
		h, ok = m.matches[id]
		m.mu.RUnlock()
		if !ok {
			return false
		}
	}
	select {
	case h.inbox <- LobbyEvent{Kind: LobbyConn, Stream: conn, Sink: conn}:
		return true
	default:
		return false
	}
}
