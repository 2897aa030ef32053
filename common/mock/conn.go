package mock

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/netpoll"
	errs "github.com/favbox/windstream/common/errors"
)

var (
	ErrReadTimeout  = errs.New(errs.ErrTimeout, errs.ErrorTypePublic, "read timeout")
	ErrWriteTimeout = errs.New(errs.ErrTimeout, errs.ErrorTypePublic, "write timeout")
)

var (
	localAddr  = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8888}
	remoteAddr = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321}
)

// Conn 模拟连接：读端由 netpoll 零拷贝读取器提供，写端为脚本化的 Sink。
//
// 实现 network.Conn 与 network.CloseNotifier。
type Conn struct {
	*Sink

	zr          netpoll.Reader
	hang        bool
	readTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
	flushes   int
	awaits    int
	mu        sync.Mutex

	// OnAwait 在每次 AwaitWritable 时调用，用于模拟传输层恢复可写。默认解除 Sink 的所有限额。
	OnAwait func(s *Sink)
}

// NewConn 创建指定原始请求字符串的连接，数据读尽后返回 io.EOF。
func NewConn(source string) *Conn {
	return &Conn{
		Sink:   NewSink(),
		zr:     netpoll.NewReader(strings.NewReader(source)),
		closed: make(chan struct{}),
	}
}

// NewHangingConn 创建数据读尽后阻塞直至连接关闭的连接，用于模拟保持打开的客户端。
func NewHangingConn(source string) *Conn {
	c := NewConn(source)
	c.hang = true
	return c
}

// --- 实现 network.Reader ---

func (m *Conn) Peek(n int) ([]byte, error) {
	b, err := m.zr.Peek(n)
	if err != nil || len(b) < n {
		if m.hang {
			return nil, m.waitClosed()
		}
		if m.isClosed() {
			return nil, errs.ErrConnectionClosed
		}
		return nil, io.EOF
	}
	return b, nil
}

func (m *Conn) Skip(n int) error {
	return m.zr.Skip(n)
}

func (m *Conn) ReadByte() (byte, error) {
	b, err := m.zr.ReadByte()
	if err != nil && m.hang {
		return 0, m.waitClosed()
	}
	return b, err
}

func (m *Conn) Release() error {
	return m.zr.Release()
}

func (m *Conn) Len() int {
	return m.zr.Len()
}

func (m *Conn) waitClosed() error {
	if m.readTimeout > 0 {
		select {
		case <-m.closed:
			return errs.ErrConnectionClosed
		case <-time.After(m.readTimeout):
			return ErrReadTimeout
		}
	}
	<-m.closed
	return errs.ErrConnectionClosed
}

// --- 实现 network.Pump ---

func (m *Conn) Flush() error {
	if m.isClosed() {
		return errs.ErrConnectionClosed
	}
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

func (m *Conn) AwaitWritable() error {
	if m.isClosed() {
		return errs.ErrConnectionClosed
	}
	m.mu.Lock()
	m.awaits++
	m.mu.Unlock()
	if m.OnAwait != nil {
		m.OnAwait(m.Sink)
	} else {
		m.Sink.Unblock()
	}
	return nil
}

// Awaits 返回 AwaitWritable 的调用次数。
func (m *Conn) Awaits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awaits
}

// --- 实现 network.CloseNotifier ---

func (m *Conn) Closed() <-chan struct{} {
	return m.closed
}

// Disconnect 模拟对端断开。
func (m *Conn) Disconnect() {
	m.closeOnce.Do(func() { close(m.closed) })
}

func (m *Conn) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// --- 实现 net.Conn ---

func (m *Conn) Read(b []byte) (n int, err error) {
	return netpoll.NewIOReader(m.zr).Read(b)
}

func (m *Conn) Write(b []byte) (n int, err error) {
	if m.isClosed() {
		return 0, errs.ErrConnectionClosed
	}
	n, _ = m.Sink.TryWrite(b)
	return n, nil
}

func (m *Conn) Close() error {
	m.Disconnect()
	return nil
}

// IsClosed 报告连接是否已关闭。
func (m *Conn) IsClosed() bool {
	return m.isClosed()
}

func (m *Conn) LocalAddr() net.Addr {
	return localAddr
}

func (m *Conn) RemoteAddr() net.Addr {
	return remoteAddr
}

func (m *Conn) SetDeadline(t time.Time) error {
	return m.SetReadDeadline(t)
}

func (m *Conn) SetReadDeadline(t time.Time) error {
	m.readTimeout = time.Until(t)
	return nil
}

func (m *Conn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *Conn) SetReadTimeout(t time.Duration) error {
	m.readTimeout = t
	return nil
}

// GetReadTimeout 返回读取超时时长。
func (m *Conn) GetReadTimeout() time.Duration {
	return m.readTimeout
}
