package server

// ConnEventKind 扇入事件类型
type ConnEventKind int

const (
	// ConnMsg 玩家入站应用消息
	ConnMsg ConnEventKind = iota
	// ConnClose 玩家流终止（错误或对端关闭）
	ConnClose
)

// ConnEvent 由各玩家接收协程产出、比赛主循环独占消费的扇入事件
// 同一玩家的事件保序（单生产者），不同玩家之间不保证先后
type ConnEvent struct {
	Kind     ConnEventKind
	PlayerID PlayerID
	Frame    Frame // 仅 Kind == ConnMsg 时有效
}

// LobbyEventKind 大厅移交通道上的事件类型
type LobbyEventKind int

const (
	// LobbyConn 新连接移交（流 + 汇成对出现）
	LobbyConn LobbyEventKind = iota
	// LobbyStartAck 比赛回发给大厅的开赛确认
	LobbyStartAck
)

// LobbyEvent 大厅与比赛之间的移交事件
type LobbyEvent struct {
	Kind   LobbyEventKind
	Stream PlayerStream
	Sink   PlayerSink
}
