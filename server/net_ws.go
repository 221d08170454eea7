package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// WSConn 将 gorilla WebSocket 封装为比赛核心使用的流/汇句柄
// 读端只有接收协程使用；写端可能被主循环与开赛广播先后持有，用互斥保护
type WSConn struct {
	ws    *websocket.Conn
	trace string // 连接追踪 id，贯穿准入日志

	mu     sync.Mutex
	closed bool
}

// NewWSConn 包装一条已升级的 WebSocket 连接
func NewWSConn(ws *websocket.Conn) *WSConn {
	ws.SetReadLimit(1 << 20) // 1MB
	return &WSConn{ws: ws, trace: uuid.NewString()}
}

// Trace 连接追踪 id
func (c *WSConn) Trace() string { return c.trace }

// ReadFrame 读一帧；文本帧原样上交，由准入/协议层决定取舍
func (c *WSConn) ReadFrame() (Frame, error) {
	mt, payload, err := c.ws.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Binary: mt == websocket.BinaryMessage, Data: payload}, nil
}

// SetReadDeadline 透传到底层连接（时钟同步用）
func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// WriteFrame 同步写出一帧，带写超时；错误直接上交调用方
// （开赛广播要求发送失败可见，不能走丢弃式发送队列）
func (c *WSConn) WriteFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := websocket.TextMessage
	if f.Binary {
		mt = websocket.BinaryMessage
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(mt, f.Data)
}

// Close 关闭底层连接；重复关闭是无操作
func (c *WSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?match=1
// 升级成功后把连接作为大厅事件移交给对应比赛实例
func HandleWS(w http.ResponseWriter, r *http.Request) {
	matchID := uint32(1)
	if s := r.URL.Query().Get("match"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		matchID = uint32(n)
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("ws upgrade error: %v", err)
		return
	}

	conn := NewWSConn(ws)
	mm := GetMatchManager()
	if !mm.Deliver(matchID, conn) {
		Log.Warnf("match %d: not accepting connections, closing %s", matchID, conn.Trace())
		_ = conn.Close()
		return
	}
	Log.Infof("match %d: connection %s handed off from %s", matchID, conn.Trace(), ws.RemoteAddr())
}
