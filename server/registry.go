package server

import "sync/atomic"

// Registry 固定容量的玩家槽位表，槽位下标即玩家 id
// 槽位只由比赛协程读写；人数计数与 id 分配是唯一跨协程共享的状态，
// 即使准入与主循环在一场比赛里先后发生，也保持原子操作
type Registry struct {
	slots  []*Player
	count  int32 // 当前在座人数（原子）
	nextID int32 // 单调递增的 id 分配器（原子），比赛内 id 不复用
}

// NewRegistry 创建容量为 capacity 的注册表
func NewRegistry(capacity int) *Registry {
	return &Registry{slots: make([]*Player, capacity)}
}

// AllocID 原子分配下一个玩家 id 并预占人数名额
// 超出容量时返回 false（名额不回收，id 不复用）
func (r *Registry) AllocID() (PlayerID, bool) {
	id := atomic.AddInt32(&r.nextID, 1) - 1
	if int(id) >= len(r.slots) {
		return 0, false
	}
	atomic.AddInt32(&r.count, 1)
	return PlayerID(id), true
}

// Seat 将玩家写入其 id 对应的槽位
func (r *Registry) Seat(p *Player) {
	r.slots[p.ID] = p
}

// Get 返回指定槽位的玩家，空槽返回 nil
func (r *Registry) Get(id PlayerID) *Player {
	if int(id) < 0 || int(id) >= len(r.slots) {
		return nil
	}
	return r.slots[id]
}

// Remove 清空槽位并减少人数；重复移除同一 id 是无操作
func (r *Registry) Remove(id PlayerID) bool {
	if int(id) < 0 || int(id) >= len(r.slots) || r.slots[id] == nil {
		return false
	}
	r.slots[id] = nil
	atomic.AddInt32(&r.count, -1)
	return true
}

// Count 原子读取当前人数
func (r *Registry) Count() int {
	return int(atomic.LoadInt32(&r.count))
}

// Capacity 注册表容量上限
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// ForEach 遍历所有在座玩家（只应由比赛协程调用）
func (r *Registry) ForEach(fn func(*Player)) {
	for _, p := range r.slots {
		if p != nil {
			fn(p)
		}
	}
}
