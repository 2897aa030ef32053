package standard

import (
	"errors"
	"io"
	"net"
	"runtime"
	"syscall"
	"time"

	"github.com/bytedance/gopkg/lang/mcache"
	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/network"
)

const (
	block1k                  = 1024
	block4k                  = 4096
	mallocMax                = 512 * block1k
	defaultMallocSize        = block4k
	minWatermark             = block4k
	maxConsecutiveEmptyReads = 100 // 最大连续空读取次数
)

var (
	_ network.Conn                 = (*Conn)(nil)
	_ network.SpecificErrorHandler = (*Conn)(nil)
)

// Conn 实现基于 net 的网络连接。
//
// 读取经由连续的输入缓冲区，Peek 得到的切片在 Release 前保持有效。
// 套接字连接以非阻塞方式直接写入文件描述符，其他连接先写入输出缓冲区，再由 Flush 提交。
type Conn struct {
	c net.Conn

	in     []byte   // 输入缓冲区
	r, w   int      // 读、写偏移量
	caches [][]byte // 扩容后被替换、但可能仍被借出的旧缓冲区，Release 时释放
	size   int      // 输入缓冲区的初始大小

	sink        sink
	readTimeout time.Duration

	err error
}

// --- 实现 network.Reader ---

// Len 输入缓冲区的可读字节数
func (c *Conn) Len() int {
	return c.w - c.r
}

// Peek 返回接下来的 n 个字节，而不移动读指针。
// 连接已无更多数据时，返回已缓冲的部分及错误。
func (c *Conn) Peek(n int) ([]byte, error) {
	if err := c.fill(n); err != nil {
		return c.in[c.r:c.w], err
	}
	return c.in[c.r : c.r+n], nil
}

// Skip 跳过 n 个字节。
func (c *Conn) Skip(n int) error {
	if err := c.fill(n); err != nil {
		return err
	}
	c.r += n
	return nil
}

// ReadByte 读取 1 个字节。
func (c *Conn) ReadByte() (byte, error) {
	if err := c.fill(1); err != nil {
		return 0, err
	}
	b := c.in[c.r]
	c.r++
	return b, nil
}

// Release 释放已读数据，此前借出的切片全部失效。
func (c *Conn) Release() error {
	c.releaseCaches()
	if c.r == c.w {
		c.r, c.w = 0, 0
	} else if c.r > 0 {
		c.w = copy(c.in, c.in[c.r:c.w])
		c.r = 0
	}
	// 预防缓冲区过大，以确保内存使用率。
	if cap(c.in) > mallocMax && c.w < c.size {
		buf := mcache.Malloc(c.size)
		c.w = copy(buf, c.in[:c.w])
		mcache.Free(c.in)
		c.in = buf
	}
	return nil
}

// 读取至缓冲区内至少有 i 个可读字节。
func (c *Conn) fill(i int) error {
	if c.Len() >= i {
		return nil
	}
	// 检查连接先前是否已返回错误
	if c.err != nil {
		return c.err
	}

	// 剩余容量不足时扩容，旧缓冲区中可能仍有借出的切片，暂不释放
	if c.r+i > len(c.in) {
		size := len(c.in)
		if size < c.size {
			size = c.size
		}
		for size < i {
			size *= 2
		}
		buf := mcache.Malloc(size)
		c.w = copy(buf, c.in[c.r:c.w])
		c.r = 0
		if c.in != nil {
			c.caches = append(c.caches, c.in)
		}
		c.in = buf
	}

	if c.readTimeout > 0 {
		_ = c.c.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	for empty := 0; c.Len() < i; {
		n, err := c.c.Read(c.in[c.w:])
		c.w += n
		if err != nil {
			c.err = c.normalizeErr(err)
			if c.Len() >= i {
				return nil
			}
			return c.err
		}
		if n == 0 {
			if empty++; empty >= maxConsecutiveEmptyReads {
				c.err = io.ErrNoProgress
				return c.err
			}
		}
	}
	return nil
}

func (c *Conn) releaseCaches() {
	for i := range c.caches {
		mcache.Free(c.caches[i])
		c.caches[i] = nil
	}
	c.caches = c.caches[:0]
}

// --- 实现 network.ByteSink ---

// TryWrite 尝试将 p 交给连接，不阻塞。
func (c *Conn) TryWrite(p []byte) (int, bool) {
	return c.sink.TryWrite(p)
}

// BufferedAmount 返回已接收但尚未发往网络的字节数。
func (c *Conn) BufferedAmount() uint64 {
	return c.sink.BufferedAmount()
}

// --- 实现 network.Pump ---

func (c *Conn) Flush() error {
	return c.normalizeErr(c.sink.Flush())
}

func (c *Conn) AwaitWritable() error {
	return c.normalizeErr(c.sink.AwaitWritable())
}

// --- 实现 net.Conn ---

// Read 优先返回输入缓冲区中的数据。
func (c *Conn) Read(b []byte) (int, error) {
	if c.Len() == 0 {
		if err := c.fill(1); err != nil {
			return 0, err
		}
	}
	n := copy(b, c.in[c.r:c.w])
	c.r += n
	return n, nil
}

// Write 先提交输出缓冲区，再直接写入连接。
func (c *Conn) Write(b []byte) (int, error) {
	if err := c.Flush(); err != nil {
		return 0, err
	}
	n, err := c.c.Write(b)
	return n, c.normalizeErr(err)
}

// Close 关闭连接并释放写入器。
// Close 先关闭套接字，以唤醒阻塞中的 Flush，再回收写缓冲。
func (c *Conn) Close() error {
	err := c.c.Close()
	c.sink.close()
	return err
}

func (c *Conn) LocalAddr() net.Addr {
	return c.c.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.c.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.c.SetDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.c.SetReadDeadline(t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.c.SetWriteDeadline(t)
}

// SetReadTimeout 设置每次填充输入缓冲区的超时时长。
func (c *Conn) SetReadTimeout(t time.Duration) error {
	c.readTimeout = t
	if t <= 0 {
		return c.c.SetReadDeadline(time.Time{})
	}
	return nil
}

// SetWriteTimeout 设置每次阻塞写出的超时时长。
func (c *Conn) SetWriteTimeout(t time.Duration) error {
	c.sink.setWriteTimeout(t)
	if t <= 0 {
		return c.c.SetWriteDeadline(time.Time{})
	}
	return nil
}

// --- 实现 network.SpecificErrorHandler ---

func (c *Conn) HandleSpecificError(err error, rip string) (needIgnore bool) {
	if errors.Is(err, errs.ErrConnectionClosed) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		hlog.SystemLogger().Debugf("Go 网络库 错误=%s, 远程地址=%s", err.Error(), rip)
		return true
	}
	return false
}

// 统一连接关闭与超时错误。
func (c *Conn) normalizeErr(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ENOTCONN) {
		return errs.ErrConnectionClosed
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return errs.ErrTimeout
	}
	return err
}

func (c *Conn) release() {
	c.releaseCaches()
	if c.in != nil {
		mcache.Free(c.in)
		c.in = nil
	}
}

func newConn(c net.Conn, size, watermark int) *Conn {
	if size < defaultMallocSize {
		size = defaultMallocSize
	}
	conn := &Conn{
		c:    c,
		in:   mcache.Malloc(size),
		size: size,
	}
	if s := newFDSink(c); s != nil {
		conn.sink = s
	} else {
		conn.sink = newBufferSink(c, watermark)
	}
	runtime.SetFinalizer(conn, (*Conn).release)
	return conn
}
