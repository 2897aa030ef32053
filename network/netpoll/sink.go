package netpoll

import (
	"sync"
	"sync/atomic"

	"github.com/cloudwego/netpoll"
)

// 写缓冲的最小水位线。
const minWatermark = 4 * 1024

// Sink 基于 netpoll 写缓冲实现非阻塞的 network.ByteSink。
//
// 数据先 Malloc 进写缓冲，由 Flush 统一提交；
// 缓冲中未提交的字节数达到水位线后即报告饱和，直到下一次 Flush。
// Flush 期间写缓冲归驱动协程所有，此时 TryWrite 不等待，直接报告饱和。
type Sink struct {
	mu        sync.Mutex
	w         netpoll.Writer
	watermark int
	pending   int64
}

// NewSink 创建水位线为 watermark 的写入器，watermark 过小时取最小值。
func NewSink(w netpoll.Writer, watermark int) *Sink {
	if watermark < minWatermark {
		watermark = minWatermark
	}
	return &Sink{w: w, watermark: watermark}
}

// TryWrite 将 p 尽量拷入写缓冲，不超过水位线。
func (s *Sink) TryWrite(p []byte) (int, bool) {
	if !s.mu.TryLock() {
		return 0, true
	}
	defer s.mu.Unlock()
	room := s.watermark - s.w.MallocLen()
	if room <= 0 {
		return 0, true
	}
	n := len(p)
	if n > room {
		n = room
	}
	if n == 0 {
		return 0, false
	}
	buf, err := s.w.Malloc(n)
	if err != nil {
		// 连接已关闭，由关闭通知触发中止
		return 0, true
	}
	copy(buf, p[:n])
	atomic.StoreInt64(&s.pending, int64(s.w.MallocLen()))
	return n, n < len(p) || s.w.MallocLen() >= s.watermark
}

// BufferedAmount 返回写缓冲中尚未提交的字节数。
func (s *Sink) BufferedAmount() uint64 {
	return uint64(atomic.LoadInt64(&s.pending))
}

// Flush 提交写缓冲。netpoll 在内核缓冲已满时会等待可写，直到全部发出或写超时。
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.w.Flush()
	atomic.StoreInt64(&s.pending, int64(s.w.MallocLen()))
	return normalizeErr(err)
}

// AwaitWritable 提交写缓冲，返回时写缓冲已腾空。
func (s *Sink) AwaitWritable() error {
	return s.Flush()
}

// Watermark 返回饱和水位线。
func (s *Sink) Watermark() int {
	return s.watermark
}
