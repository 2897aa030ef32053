package http1

import (
	"sync"

	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/internal/nocopy"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol"
	"github.com/favbox/windstream/protocol/http1/req"
	"github.com/favbox/windstream/protocol/http1/resp"
	"github.com/rs/xid"
)

// Handler 处理一个请求。在连接的串行上下文中调用，可直接操作 Response 与 Body，
// 之后的写入须在回调中进行，或经 Connection.Do 转交。
type Handler func(c *Connection)

// Connection 持有单个请求的响应、请求正文与中止信号。
//
// 传输侧事件（正文块、可写、中止）与应用侧操作都须在持有连接锁时进行：
// 驱动协程自行加锁，其他协程经 Do 转交。回调已在锁内执行，不可再调用 Do。
type Connection struct {
	noCopy nocopy.NoCopy //lint:ignore U1000 until noCopy is used

	mu        sync.Mutex
	id        xid.ID
	head      *req.RequestHead
	signal    protocol.AbortSignal
	callbacks protocol.Registry
	response  *resp.Response
	body      *req.BodyReader

	outcome protocol.Outcome
	onDone  func(protocol.Outcome)
	wake    chan struct{}
}

// NewConnection 创建连接对象，closer 用于释放底层传输连接。
func NewConnection(head *req.RequestHead, sink network.ByteSink, cfg resp.Config, closer func()) *Connection {
	c := &Connection{
		id:   xid.New(),
		head: head,
		wake: make(chan struct{}, 1),
	}
	c.body = req.NewBodyReader(&c.callbacks)
	c.response = resp.NewResponse(sink, &c.callbacks, cfg)
	c.response.SetFinishHook(c.finish)
	c.response.SetCloser(func() {
		c.signal.Fire()
		if closer != nil {
			closer()
		}
	})

	// 先停止正文交付，再通知响应
	c.signal.Subscribe(c.body.Abort)
	c.signal.Subscribe(c.response.Abort)
	return c
}

// ID 返回连接标识，用于日志。
func (c *Connection) ID() string {
	return c.id.String()
}

// Head 返回请求头。
func (c *Connection) Head() *req.RequestHead {
	return c.head
}

// Response 返回响应写出器。
func (c *Connection) Response() *resp.Response {
	return c.response
}

// Body 返回请求正文读取器。
func (c *Connection) Body() *req.BodyReader {
	return c.body
}

// Outcome 返回终局结果，未结束时为 OutcomeNone。
func (c *Connection) Outcome() protocol.Outcome {
	return c.outcome
}

// OnDone 设置终局回调，至多调用一次。
func (c *Connection) OnDone(f func(protocol.Outcome)) {
	c.onDone = f
}

// FeedBody 交付一个请求正文块。消费者 panic 时关闭连接。
func (c *Connection) FeedBody(chunk []byte, last bool) error {
	err := c.body.Feed(chunk, last)
	if pe, ok := err.(*protocol.PanicError); ok {
		hlog.SystemLogger().Errorf("正文回调 panic, conn=%s: %v\n%s", c.ID(), pe.Value, pe.Stack)
		_ = c.response.Close()
	}
	return err
}

// NotifyWritable 通知传输层已恢复可写。
func (c *Connection) NotifyWritable() {
	c.response.NotifyWritable()
}

// NotifyAbort 通知对端断开或传输出错，仅首次生效。
func (c *Connection) NotifyAbort() {
	if c.signal.Fire() {
		hlog.SystemLogger().Debugf("连接中止: conn=%s state=%s", c.ID(), c.response.State())
	}
}

// Destroy 销毁连接：释放全部回调而不调用，未结束的响应以 OutcomeAborted 结束。
func (c *Connection) Destroy() {
	c.callbacks.Release()
	c.signal.Fire()
}

// Do 在连接的串行上下文中执行 f，并唤醒驱动协程推进写出。
//
// 供应用在其他协程中操作响应，不可在回调内调用。
func (c *Connection) Do(f func(c *Connection)) {
	c.mu.Lock()
	f(c)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Done 报告是否已产生终局结果。
func (c *Connection) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome != protocol.OutcomeNone
}

// settled 报告请求是否已处理完毕：响应已结束，且请求正文已读完或不再读取。
func (c *Connection) settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == protocol.OutcomeNone {
		return false
	}
	return c.outcome != protocol.OutcomeCompleted || c.body.Ended() || c.body.Aborted()
}

func (c *Connection) finish(o protocol.Outcome) {
	if c.outcome != protocol.OutcomeNone {
		return
	}
	c.outcome = o
	if c.onDone != nil {
		c.onDone(o)
	}
}
