package server

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultCapacity 默认槽位表容量
	DefaultCapacity = 100
	// DefaultClockSyncProbes 准入前的时钟探测往返次数
	DefaultClockSyncProbes = 10
	// EntityRange 每位玩家独占的实体 id 段宽度，同时是可见范围
	EntityRange = 500
	// fanInCapacity 扇入队列容量；写满时生产者阻塞等待而不是丢弃
	fanInCapacity = 100
	// 固定出生点，不由握手内容决定
	spawnX = 256
	spawnY = 256
)

// MatchConfig 一场比赛的全部外部配置
type MatchConfig struct {
	MatchID          uint32
	Seed             uint32
	Capacity         int
	TargetPopulation int // 开赛所需人数，必填，不做任何硬编码缺省
	TickInterval     time.Duration
	ClockSyncProbes  int
	SerType          SerializationType
	SendStartAck     bool // 就绪后是否先向大厅回发开赛确认
}

// DefaultMatchConfig 返回带默认参数的配置；目标人数必须由调用方给出
func DefaultMatchConfig(id, seed uint32, target int) MatchConfig {
	return MatchConfig{
		MatchID:          id,
		Seed:             seed,
		Capacity:         DefaultCapacity,
		TargetPopulation: target,
		TickInterval:     DefaultTickInterval,
		ClockSyncProbes:  DefaultClockSyncProbes,
	}
}

// Validate 校验配置；目标人数缺失或超出容量都是建赛错误
func (c *MatchConfig) Validate() error {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.TargetPopulation <= 0 {
		return fmt.Errorf("match %d: target population must be configured", c.MatchID)
	}
	if c.TargetPopulation > c.Capacity {
		return fmt.Errorf("match %d: target population %d exceeds capacity %d",
			c.MatchID, c.TargetPopulation, c.Capacity)
	}
	return nil
}

// MatchComms 大厅与比赛之间的双向移交通道
// RX 每收到一个事件代表一条新连接；TX 用于回发开赛确认
type MatchComms struct {
	RX <-chan LobbyEvent
	TX chan<- LobbyEvent
}

// Match 一场比赛实例：权威状态全部在内存，由单协程推进
type Match struct {
	cfg      MatchConfig
	world    *World
	registry *Registry
	events   chan ConnEvent
	comms    MatchComms
	metrics  *MatchMetrics
}

// NewMatch 创建比赛并生成世界（种子到世界是纯函数，只算一次）
func NewMatch(cfg MatchConfig, comms MatchComms) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Match{
		cfg:      cfg,
		world:    GenerateWorld(cfg.Seed),
		registry: NewRegistry(cfg.Capacity),
		events:   make(chan ConnEvent, fanInCapacity),
		comms:    comms,
		metrics:  &MatchMetrics{},
	}, nil
}

// Config 返回建赛时的配置副本
func (m *Match) Config() MatchConfig { return m.cfg }

// Metrics 比赛运行指标
func (m *Match) Metrics() *MatchMetrics { return m.metrics }

// Population 当前在座人数（原子读）
func (m *Match) Population() int { return m.registry.Count() }

// Run 阻塞运行一场比赛：先准入到目标人数，再广播开赛并推进 Tick，
// 直至人数归零。大厅通道关闭或送来意外事件是比赛级致命错误，
// 以返回值上报给所有者而不是崩溃
func (m *Match) Run() error {
	Log.Infof("match %d: run seed=%d world=%08x target=%d",
		m.cfg.MatchID, m.cfg.Seed, m.world.Checksum(), m.cfg.TargetPopulation)

	if err := m.admitPlayers(); err != nil {
		return err
	}
	if m.cfg.SendStartAck && m.comms.TX != nil {
		m.comms.TX <- LobbyEvent{Kind: LobbyStartAck}
	}
	m.broadcastStart()
	m.loop()

	Log.Infof("match %d: completed seed=%d", m.cfg.MatchID, m.cfg.Seed)
	return nil
}

// admitPlayers 准入阶段：逐个消费大厅移交的连接直到就绪
func (m *Match) admitPlayers() error {
	for m.registry.Count() < m.cfg.TargetPopulation {
		ev, ok := <-m.comms.RX
		if !ok {
			return fmt.Errorf("match %d: lobby channel closed before readiness", m.cfg.MatchID)
		}
		if ev.Kind != LobbyConn {
			return fmt.Errorf("match %d: unexpected lobby event kind %d", m.cfg.MatchID, ev.Kind)
		}
		m.admit(ev.Stream, ev.Sink)
	}
	Log.Infof("match %d: ready with %d players", m.cfg.MatchID, m.registry.Count())
	return nil
}

// admit 单个连接的准入：握手校验 → 时钟同步 → 分配 id 入座
// 握手不合格只关闭该连接，比赛继续等待后续连接
func (m *Match) admit(stream PlayerStream, sink PlayerSink) {
	role, err := readWhoami(m.cfg.SerType, stream)
	if err == nil && role != WhoamiClient {
		err = fmt.Errorf("peer role %d is not a client", role)
	}
	if err != nil {
		m.metrics.IncRejected()
		Log.Warnf("match %d: handshake rejected: %v", m.cfg.MatchID, err)
		_ = sink.Close()
		return
	}

	offset, err := SyncClock(m.cfg.ClockSyncProbes, m.cfg.SerType, stream, sink)
	if err != nil {
		// 同步失败不阻断准入，按零偏差继续
		m.metrics.IncClockSyncFailed()
		Log.Warnf("match %d: clock sync failed, using zero offset: %v", m.cfg.MatchID, err)
		offset = 0
	}

	id, ok := m.registry.AllocID()
	if !ok {
		Log.Warnf("match %d: slot table full, dropping connection", m.cfg.MatchID)
		_ = sink.Close()
		return
	}
	p := &Player{ID: id, X: spawnX, Y: spawnY, ClockDiff: offset, Sink: sink}

	// 接收协程在入座前启动：之后该流只通过扇入队列与主循环交互
	go m.receiveLoop(id, stream)
	m.registry.Seat(p)
	m.metrics.IncAdmitted()
	Log.Infof("match %d: admitted player %d clock_offset=%s population=%d",
		m.cfg.MatchID, id, offset, m.registry.Count())
}

// readWhoami 读首帧并校验身份；首帧必须是二进制的 whoami 消息
func readWhoami(st SerializationType, stream PlayerStream) (byte, error) {
	f, err := stream.ReadFrame()
	if err != nil {
		return WhoamiUnknown, fmt.Errorf("handshake read: %w", err)
	}
	if !f.Binary {
		return WhoamiUnknown, fmt.Errorf("handshake frame is not binary")
	}
	var w Whoami
	if err := DecodeMessage(st, MsgWhoami, f.Data, &w); err != nil {
		return WhoamiUnknown, fmt.Errorf("handshake decode: %w", err)
	}
	return w.Role, nil
}

// receiveLoop 每位玩家一个接收协程：只负责把入站帧搬进扇入队列
// 队列满时阻塞等待（背压不丢事件），流终止时投递 Close 事件后退出
func (m *Match) receiveLoop(id PlayerID, stream PlayerStream) {
	for {
		f, err := stream.ReadFrame()
		if err != nil {
			m.events <- ConnEvent{Kind: ConnClose, PlayerID: id}
			return
		}
		m.events <- ConnEvent{Kind: ConnMsg, PlayerID: id, Frame: f}
	}
}

// processEvent 主循环内消费一个扇入事件
func (m *Match) processEvent(ev ConnEvent) {
	m.metrics.IncEvents()
	switch ev.Kind {
	case ConnMsg:
		m.handleMessage(ev.PlayerID, ev.Frame)
	case ConnClose:
		Log.Infof("match %d: player %d connection closed", m.cfg.MatchID, ev.PlayerID)
		m.dropPlayer(ev.PlayerID)
	}
}

// handleMessage 游戏逻辑的挂载点，目前只解码标签并记录
func (m *Match) handleMessage(id PlayerID, f Frame) {
	tag, err := DecodeTag(m.cfg.SerType, f.Data)
	if err != nil {
		Log.Debugf("match %d: undecodable frame from player %d: %v", m.cfg.MatchID, id, err)
		return
	}
	Log.Debugf("match %d: message tag=%d from player %d", m.cfg.MatchID, tag, id)
}

// dropPlayer 清槽并减员；重复关闭同一 id 是无操作
func (m *Match) dropPlayer(id PlayerID) {
	p := m.registry.Get(id)
	if p == nil {
		return
	}
	_ = p.Sink.Close()
	m.registry.Remove(id)
}

// broadcastStart 就绪后向所有在座玩家并发下发开赛消息，整体等待一批完成
// 批次结束前不回写注册表，保持比赛协程对注册表的独占；
// 发送失败视同断线：尽力补发断线通知后逐出该玩家，不留僵尸槽位
func (m *Match) broadcastStart() {
	var wg sync.WaitGroup
	failed := make(chan PlayerID, m.registry.Capacity())
	m.registry.ForEach(func(p *Player) {
		wg.Add(1)
		go func(p *Player) {
			defer wg.Done()
			if err := m.sendStart(p); err != nil {
				Log.Warnf("match %d: start send to player %d failed: %v", m.cfg.MatchID, p.ID, err)
				failed <- p.ID
			}
		}(p)
	})
	wg.Wait()
	close(failed)

	for id := range failed {
		m.evict(id, "start delivery failed")
	}
	Log.Warnf("match %d: started population=%d seed=%d", m.cfg.MatchID, m.registry.Count(), m.cfg.Seed)
}

// sendStart 按玩家 id 推导互不重叠的实体 id 段并下发开赛消息
func (m *Match) sendStart(p *Player) error {
	msg := &PlayerStart{
		EntityID: uint32(p.ID) * EntityRange,
		X:        p.X,
		Y:        p.Y,
		Range:    EntityRange,
		Seed:     m.cfg.Seed,
	}
	b, err := EncodeMessage(m.cfg.SerType, MsgPlayerStart, msg)
	if err != nil {
		return err
	}
	return p.Sink.WriteFrame(Frame{Binary: true, Data: b})
}

// evict 服务端主动逐出：尽力通知对端后断开并清槽
func (m *Match) evict(id PlayerID, reason string) {
	p := m.registry.Get(id)
	if p == nil {
		return
	}
	if b, err := EncodeMessage(m.cfg.SerType, MsgDisconnect, &Disconnect{Reason: reason}); err == nil {
		_ = p.Sink.WriteFrame(Frame{Binary: true, Data: b})
	}
	_ = p.Sink.Close()
	m.registry.Remove(id)
	m.metrics.IncEvicted()
}
