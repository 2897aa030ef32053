package netpoll

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cloudwego/netpoll"
	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/network"
)

var (
	_ network.Conn                 = (*Conn)(nil)
	_ network.CloseNotifier        = (*Conn)(nil)
	_ network.SpecificErrorHandler = (*Conn)(nil)
)

// Conn 实现基于 netpoll 的网络连接。
type Conn struct {
	*Sink
	conn netpoll.Connection

	closeOnce sync.Once
	closed    chan struct{}
}

// --- 实现 network.Reader ---

func (c *Conn) Len() int {
	return c.conn.Reader().Len()
}

func (c *Conn) Peek(n int) (b []byte, err error) {
	b, err = c.conn.Reader().Peek(n)
	err = normalizeErr(err)
	return
}

func (c *Conn) Skip(n int) error {
	return normalizeErr(c.conn.Reader().Skip(n))
}

func (c *Conn) ReadByte() (b byte, err error) {
	b, err = c.conn.Reader().ReadByte()
	err = normalizeErr(err)
	return
}

func (c *Conn) Release() error {
	return c.conn.Reader().Release()
}

// --- 实现 net.Conn ---

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	err = normalizeErr(err)
	return n, err
}

// Write 绕过写缓冲水位线，直接写入并提交。
func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.conn.Writer().WriteBinary(p)
	if err != nil {
		return n, normalizeErr(err)
	}
	return n, c.Flush()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Conn) SetReadTimeout(t time.Duration) error {
	return c.conn.SetReadTimeout(t)
}

// --- 实现 network.CloseNotifier ---

// Closed 返回对端断开或连接关闭时被关闭的通道。
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// --- 实现 network.SpecificErrorHandler ---

// HandleSpecificError 判断特定错误是否需要忽略。
func (c *Conn) HandleSpecificError(err error, remoteIP string) (needIgnore bool) {
	// 需要忽略错误
	if errors.Is(err, errs.ErrConnectionClosed) || errors.Is(err, netpoll.ErrConnClosed) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		// 忽略因连接被关闭或重置产生的 flush 错误
		if strings.Contains(err.Error(), "when flush") {
			return true
		}
		hlog.SystemLogger().Debugf("Netpoll error=%s, remoteAddr=%s", err.Error(), remoteIP)
		return true
	}

	// 其他为不可忽略的错误
	return false
}

// 将 netpoll 错误统一为引擎可识别的错误。
func normalizeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, netpoll.ErrEOF):
		return io.EOF
	case errors.Is(err, netpoll.ErrReadTimeout):
		return errs.ErrTimeout
	case errors.Is(err, netpoll.ErrConnClosed) || errors.Is(err, syscall.EPIPE):
		return errs.ErrConnectionClosed
	}
	return err
}

// 将 netpoll 连接包装为引擎连接，并在连接关闭时关闭通知通道。
func newConn(c netpoll.Connection, watermark int) *Conn {
	conn := &Conn{
		Sink:   NewSink(c.Writer(), watermark),
		conn:   c,
		closed: make(chan struct{}),
	}
	_ = c.AddCloseCallback(func(netpoll.Connection) error {
		conn.markClosed()
		return nil
	})
	return conn
}
