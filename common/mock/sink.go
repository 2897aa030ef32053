package mock

import (
	"sync"
)

// Unlimited 表示单次 TryWrite 不限接收字节数。
const Unlimited = -1

// Sink 是按脚本接收字节的 network.ByteSink 模拟实现。
//
// 每次 TryWrite 依次消耗一个脚本限额，脚本耗尽后使用 Limit。
// 接收的字节少于请求的字节时，报告饱和。
type Sink struct {
	mu      sync.Mutex
	script  []int
	Limit   int
	written []byte
	calls   int
}

// NewSink 创建按给定限额序列接收数据的模拟接收端，脚本耗尽后不再限制。
func NewSink(limits ...int) *Sink {
	return &Sink{script: limits, Limit: Unlimited}
}

// Script 追加后续调用的接收限额。
func (s *Sink) Script(limits ...int) {
	s.mu.Lock()
	s.script = append(s.script, limits...)
	s.mu.Unlock()
}

// Block 使后续每次调用都不接收任何字节，直到 Unblock。
func (s *Sink) Block() {
	s.mu.Lock()
	s.script = s.script[:0]
	s.Limit = 0
	s.mu.Unlock()
}

// Unblock 取消所有限额。
func (s *Sink) Unblock() {
	s.mu.Lock()
	s.script = s.script[:0]
	s.Limit = Unlimited
	s.mu.Unlock()
}

func (s *Sink) TryWrite(p []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	limit := s.Limit
	if len(s.script) > 0 {
		limit = s.script[0]
		s.script = s.script[1:]
	}
	n := len(p)
	if limit >= 0 && limit < n {
		n = limit
	}
	s.written = append(s.written, p[:n]...)
	return n, n < len(p)
}

func (s *Sink) BufferedAmount() uint64 {
	return 0
}

// Written 返回已接收字节的副本。
func (s *Sink) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}

// String 返回已接收的字节串。
func (s *Sink) String() string {
	return string(s.Written())
}

// Calls 返回 TryWrite 的调用次数。
func (s *Sink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Reset 清空已接收的数据。
func (s *Sink) Reset() {
	s.mu.Lock()
	s.written = s.written[:0]
	s.calls = 0
	s.mu.Unlock()
}
