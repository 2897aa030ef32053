// Package http1 将 HTTP/1.1 连接的传输事件驱动到响应引擎上。
package http1

import (
	"context"
	"errors"
	"io"
	"time"

	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol"
	"github.com/favbox/windstream/protocol/consts"
	"github.com/favbox/windstream/protocol/http1/req"
	"github.com/favbox/windstream/protocol/http1/resp"
	"golang.org/x/sync/errgroup"
)

// Option 表示 HTTP/1.1 服务器选项。
type Option struct {
	DisableKeepalive   bool          // 是否禁用长连接
	NoDefaultDate      bool          // 是否不要默认 Date 标头
	MaxRequestBodySize int           // 最大请求正文大小，0 表示不限制
	MaxHeaderSize      int           // 最大请求头大小，0 表示不限制
	MaxWritableSpins   int           // 单次可写通知内可写回调的最大连续调用次数
	IdleTimeout        time.Duration // 长连接两次请求之间的超时时长
	ReadTimeout        time.Duration // 读取请求的超时时长
	ServerName         []byte        // 服务器名称，为空时不写 Server 标头
}

// Server 表示 HTTP/1.1 服务器，每个连接由一个协程驱动。
type Server struct {
	Option
	Handler Handler
}

// NewServer 创建 HTTP/1.1 服务器。
func NewServer(handler Handler) *Server {
	return &Server{Handler: handler}
}

// 请求正文事件。
type bodyEvent struct {
	chunk []byte
	last  bool
	err   error
}

// Serve 提供连接服务，直到连接关闭、出错或不再保持长连接。
func (s *Server) Serve(ctx context.Context, conn network.Conn) error {
	if s.ReadTimeout > 0 {
		_ = conn.SetReadTimeout(s.ReadTimeout)
	}
	for {
		head := &req.RequestHead{}
		if err := req.ReadHead(head, conn, s.MaxHeaderSize); err != nil {
			if err == io.EOF {
				return nil
			}
			s.writeErrorResponse(conn, err)
			return err
		}

		keepAlive, err := s.serveRequest(ctx, conn, head)
		if err != nil || !keepAlive {
			return err
		}

		if s.IdleTimeout > 0 {
			_ = conn.SetReadTimeout(s.IdleTimeout)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// serveRequest 处理单个请求，返回连接能否继续服务下一个请求。
func (s *Server) serveRequest(ctx context.Context, conn network.Conn, head *req.RequestHead) (bool, error) {
	cfg := resp.Config{
		ServerName:       s.ServerName,
		NoDefaultDate:    s.NoDefaultDate,
		ConnectionClose:  s.DisableKeepalive || head.ConnectionClose(),
		MaxWritableSpins: s.MaxWritableSpins,
	}
	c := NewConnection(head, conn, cfg, func() { _ = conn.Close() })

	c.Do(func(c *Connection) {
		if err := protocol.Invoke(func() { s.Handler(c) }); err != nil {
			if pe, ok := err.(*protocol.PanicError); ok {
				hlog.SystemLogger().Errorf("处理器 panic, conn=%s: %v\n%s", c.ID(), pe.Value, pe.Stack)
			}
			_ = c.Response().Close()
		}
	})

	var (
		events chan bodyEvent
		ack    = make(chan struct{})
		stop   = make(chan struct{})
		g      errgroup.Group
	)
	if head.ContentLength() == 0 {
		c.Do(func(c *Connection) { _ = c.FeedBody(nil, true) })
	} else {
		events = make(chan bodyEvent)
		g.Go(func() error {
			return readBody(conn, req.NewBodyDecoder(head.ContentLength(), s.MaxRequestBodySize), events, ack, stop)
		})
	}

	var closed <-chan struct{}
	if cn, ok := conn.(network.CloseNotifier); ok {
		closed = cn.Closed()
	}
	done := ctx.Done()

	// 写出在独立协程中进行，等待可写期间仍能响应正文、中止与关闭事件
	var (
		pumpDone = make(chan error, 1)
		pumping  bool
		broken   bool
		repump   = true
	)
	for {
		if repump && !pumping && !broken {
			repump, pumping = false, true
			go func() { pumpDone <- pump(conn, c) }()
		}
		if !pumping && c.settled() {
			break
		}

		select {
		case err := <-pumpDone:
			pumping = false
			if err != nil {
				hlog.SystemLogger().Debugf("写出失败: conn=%s error=%v", c.ID(), err)
				broken = true
				c.Do(func(c *Connection) { c.NotifyAbort() })
			}
		case ev := <-events:
			repump = true
			if ev.err != nil {
				hlog.SystemLogger().Debugf("读取请求正文出错: conn=%s error=%v", c.ID(), ev.err)
				events = nil
				c.Do(func(c *Connection) { c.NotifyAbort() })
				continue
			}
			c.Do(func(c *Connection) { _ = c.FeedBody(ev.chunk, ev.last) })
			ack <- struct{}{}
			if ev.last {
				events = nil
			}
		case <-c.wake:
			repump = true
		case <-closed:
			closed = nil
			c.Do(func(c *Connection) { c.NotifyAbort() })
			// 唤醒可能阻塞在等待可写上的写出协程
			_ = conn.Close()
		case <-done:
			done = nil
			c.Do(func(c *Connection) { c.Destroy() })
			_ = conn.Close()
		}
	}

	c.mu.Lock()
	outcome := c.outcome
	snapshot := c.response.Snapshot()
	keepAlive := outcome == protocol.OutcomeCompleted && c.body.Ended() &&
		!s.DisableKeepalive && c.response.KeepAlive()
	c.mu.Unlock()
	hlog.SystemLogger().Debugf("响应结束: conn=%s outcome=%s snapshot=%s", c.ID(), outcome, snapshot)

	// 结束前最后一次写入可能发生在上一轮写出之后
	if outcome == protocol.OutcomeCompleted {
		if err := conn.Flush(); err != nil {
			hlog.SystemLogger().Debugf("写出失败: conn=%s error=%v", c.ID(), err)
			keepAlive = false
		}
	}
	close(stop)
	if !keepAlive {
		_ = conn.Close()
	}
	if err := g.Wait(); err != nil {
		hlog.SystemLogger().Debugf("请求正文读取结束: conn=%s error=%v", c.ID(), err)
	}
	if keepAlive {
		_ = conn.Release()
	}
	return keepAlive, nil
}

// pump 提交已写入的数据，并在传输层饱和时等待可写、通知响应继续写出。
//
// 刷新与等待可写都不持有连接锁：等待可写期间响应不会写入传输层，
// 应用协程仍可经 Do 操作连接。
func pump(conn network.Conn, c *Connection) error {
	for {
		c.mu.Lock()
		waiting := c.response.NeedsWritable()
		c.mu.Unlock()

		if err := conn.Flush(); err != nil {
			return err
		}
		if !waiting {
			return nil
		}
		if err := conn.AwaitWritable(); err != nil {
			return err
		}

		c.mu.Lock()
		c.NotifyWritable()
		c.mu.Unlock()
	}
}

// readBody 在独立协程中解码请求正文，逐块交给驱动协程，待其确认后释放读缓冲。
func readBody(r network.Reader, dec *req.BodyDecoder, events chan<- bodyEvent, ack, stop <-chan struct{}) error {
	for {
		chunk, last, err := dec.Next(r)
		select {
		case events <- bodyEvent{chunk: chunk, last: last, err: err}:
		case <-stop:
			return err
		}
		if err != nil {
			return err
		}
		select {
		case <-ack:
		case <-stop:
			return nil
		}
		_ = r.Release()
		if last {
			return nil
		}
	}
}

// 请求头有误时写出错误响应。
func (s *Server) writeErrorResponse(conn network.Conn, err error) {
	code := consts.StatusBadRequest
	if errors.Is(err, errs.ErrHeadTooLarge) {
		code = consts.StatusRequestHeaderFieldsTooLarge
	} else if errors.Is(err, errs.ErrTimeout) {
		return
	}
	r := resp.NewResponse(conn, nil, resp.Config{
		ServerName:      s.ServerName,
		NoDefaultDate:   s.NoDefaultDate,
		ConnectionClose: true,
	})
	_ = r.WriteStatusCode(code)
	_ = r.End(nil)
	_ = conn.Flush()
}
