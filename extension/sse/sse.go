// Package sse 在流式响应之上发布服务器发送事件（Server-Sent Events）。
package sse

import (
	"github.com/favbox/windstream/protocol/http1"
	"github.com/favbox/windstream/protocol/http1/resp"
	"github.com/valyala/bytebufferpool"
)

const (
	ContentType  = "text/event-stream"
	noCache      = "no-cache"
	cacheControl = "Cache-Control"
	LastEventID  = "Last-Event-ID"
)

type Event struct {
	Event string
	ID    string
	Retry uint64
	Data  []byte
}

// GetLastEventID 获取请求头中可能存在的 Last-Event-ID 值。
func GetLastEventID(c *http1.Connection) string {
	return string(c.Head().Peek(LastEventID))
}

// Stream 以分块正文逐个发布事件。与响应一样，须在连接的串行上下文中使用。
type Stream struct {
	r *resp.Response
}

// NewStream 为发布事件创建一个新的流，须在响应开始正文之前调用。
func NewStream(c *http1.Connection) (*Stream, error) {
	r := c.Response()
	if err := r.WriteHeader("Content-Type", ContentType); err != nil {
		return nil, err
	}
	if err := r.WriteHeader(cacheControl, noCache); err != nil {
		return nil, err
	}
	return &Stream{r: r}, nil
}

// Publish 发布事件至客户端。
//
// 返回 false 表示传输层已饱和，之后的发布将以背压错误被拒绝，直到 OnWritable 回调被调用。
func (s *Stream) Publish(event *Event) (bool, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = AppendEvent(buf.B, event)
	return s.r.Write(buf.B)
}

// OnWritable 注册传输层恢复可写时的回调，返回 true 则立即再次调用。
func (s *Stream) OnWritable(fn func() bool) error {
	return s.r.OnWritable(func(uint64) bool { return fn() })
}

// OnAborted 注册客户端断开时的回调。
func (s *Stream) OnAborted(fn func()) error {
	return s.r.OnAborted(fn)
}

// Close 结束事件流。
func (s *Stream) Close() error {
	return s.r.End(nil)
}
