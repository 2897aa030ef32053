package standard

import (
	"net"
	"sync"
	"time"

	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/network"
	"github.com/valyala/bytebufferpool"
)

// 连接的写入端。
type sink interface {
	network.ByteSink
	network.Pump
	setWriteTimeout(t time.Duration)
	close()
}

// bufferSink 用于无法取得文件描述符的连接（如 TLS、内存管道）。
// 数据先拷入池化的输出缓冲区，累计到水位线即报告饱和，由 Flush 阻塞提交。
// Flush 提交期间 TryWrite 不等待，直接报告饱和。
type bufferSink struct {
	mu           sync.Mutex
	c            net.Conn
	out          *bytebufferpool.ByteBuffer
	watermark    int
	writeTimeout time.Duration
}

func newBufferSink(c net.Conn, watermark int) *bufferSink {
	if watermark < minWatermark {
		watermark = minWatermark
	}
	return &bufferSink{c: c, out: bytebufferpool.Get(), watermark: watermark}
}

func (s *bufferSink) TryWrite(p []byte) (int, bool) {
	if !s.mu.TryLock() {
		return 0, true
	}
	defer s.mu.Unlock()
	if s.out == nil {
		return 0, true
	}
	room := s.watermark - s.out.Len()
	if room <= 0 {
		return 0, true
	}
	n := len(p)
	if n > room {
		n = room
	}
	_, _ = s.out.Write(p[:n])
	return n, n < len(p) || s.out.Len() >= s.watermark
}

func (s *bufferSink) BufferedAmount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return 0
	}
	return uint64(s.out.Len())
}

func (s *bufferSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return errs.ErrConnectionClosed
	}
	if s.out.Len() == 0 {
		return nil
	}
	if s.writeTimeout > 0 {
		_ = s.c.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.c.Write(s.out.B)
	s.out.Reset()
	return err
}

// AwaitWritable 提交输出缓冲区，返回时输出缓冲区已腾空。
func (s *bufferSink) AwaitWritable() error {
	return s.Flush()
}

func (s *bufferSink) setWriteTimeout(t time.Duration) {
	s.mu.Lock()
	s.writeTimeout = t
	s.mu.Unlock()
}

func (s *bufferSink) close() {
	s.mu.Lock()
	if s.out != nil {
		bytebufferpool.Put(s.out)
		s.out = nil
	}
	s.mu.Unlock()
}
