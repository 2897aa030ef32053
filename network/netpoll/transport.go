package netpoll

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cloudwego/netpoll"
	"github.com/favbox/windstream/common/config"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/network"
)

var _ network.Transporter = (*transport)(nil)

func init() {
	// 禁用 netpoll 的日志
	netpoll.SetLoggerOutput(io.Discard)
}

type connKey struct{}

type transport struct {
	sync.RWMutex
	network          string
	addr             string
	keepAliveTimeout time.Duration
	readTimeout      time.Duration
	writeTimeout     time.Duration
	watermark        int
	listener         net.Listener
	eventLoop        netpoll.EventLoop
	listenConfig     *net.ListenConfig
	OnAccept         func(conn net.Conn) context.Context
}

// ListenAndServe 绑定监听地址并持续服务，除非出现错误或传输器关闭。
func (t *transport) ListenAndServe(onData network.OnData) (err error) {
	_ = network.UnlinkUdsFile(t.network, t.addr)
	if t.listenConfig != nil {
		t.listener, err = t.listenConfig.Listen(context.Background(), t.network, t.addr)
	} else {
		t.listener, err = net.Listen(t.network, t.addr)
	}
	if err != nil {
		return errors.New("创建 netpoll 监听器失败：" + err.Error())
	}

	opts := []netpoll.Option{
		netpoll.WithIdleTimeout(t.keepAliveTimeout),
		netpoll.WithOnPrepare(func(conn netpoll.Connection) context.Context {
			_ = conn.SetReadTimeout(t.readTimeout)
			if t.writeTimeout > 0 {
				// 对端不再读取时，阻塞中的 Flush 在超时后返回
				_ = conn.SetWriteTimeout(t.writeTimeout)
			}
			c := newConn(conn, t.watermark)
			ctx := context.Background()
			if t.OnAccept != nil {
				ctx = t.OnAccept(c)
			}
			return context.WithValue(ctx, connKey{}, c)
		}),
	}

	t.Lock()
	t.eventLoop, err = netpoll.NewEventLoop(func(ctx context.Context, connection netpoll.Connection) error {
		c, ok := ctx.Value(connKey{}).(*Conn)
		if !ok {
			c = newConn(connection, t.watermark)
		}
		return onData(ctx, c)
	}, opts...)
	t.Unlock()
	if err != nil {
		return errors.New("创建 netpoll event-loop 失败：" + err.Error())
	}

	hlog.SystemLogger().Infof("HTTP 服务器监听地址=%s", t.listener.Addr().String())
	t.RLock()
	err = t.eventLoop.Serve(t.listener)
	t.RUnlock()
	if err != nil {
		return errors.New("netpoll event-loop 无法启动监听服务：" + err.Error())
	}
	return nil
}

// Close 强制传输器立即关闭（无超时等待）。
func (t *transport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	return t.Shutdown(ctx)
}

// Shutdown 停止监听器并优雅关闭。将等待所有连接关闭，直到触达截止时间。
func (t *transport) Shutdown(ctx context.Context) error {
	defer func() {
		_ = network.UnlinkUdsFile(t.network, t.addr)
		t.RUnlock()
	}()
	t.RLock()
	if t.eventLoop == nil {
		return nil
	}
	return t.eventLoop.Shutdown(ctx)
}

// NewTransporter 创建 netpoll 网络传输器。
func NewTransporter(options *config.Options) network.Transporter {
	return &transport{
		network:          options.Network,
		addr:             options.Addr,
		keepAliveTimeout: options.KeepAliveTimeout,
		readTimeout:      options.ReadTimeout,
		writeTimeout:     options.WriteTimeout,
		watermark:        options.WriteHighWatermark,
		listenConfig:     options.ListenConfig,
		OnAccept:         options.OnAccept,
	}
}
