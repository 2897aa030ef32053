package standard

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/favbox/windstream/common/config"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/network"
)

var _ network.Transporter = (*transport)(nil)

type transport struct {
	// 请求读取的每个连接缓冲区大小，若未设置则使用默认缓冲大小。
	readBufferSize int
	network        string
	addr           string
	readTimeout    time.Duration
	writeTimeout   time.Duration
	watermark      int
	handler        network.OnData
	ln             net.Listener
	listenConfig   *net.ListenConfig
	lock           sync.Mutex
	conns          sync.WaitGroup
	OnAccept       func(conn net.Conn) context.Context
}

func (t *transport) ListenAndServe(onData network.OnData) error {
	t.handler = onData
	return t.serve()
}

func (t *transport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	return t.Shutdown(ctx)
}

// Shutdown 关闭监听器，并等待进行中的连接处理结束，直到触达截止时间。
func (t *transport) Shutdown(ctx context.Context) error {
	defer func() {
		_ = network.UnlinkUdsFile(t.network, t.addr)
	}()

	t.lock.Lock()
	if t.ln != nil {
		_ = t.ln.Close()
	}
	t.lock.Unlock()

	done := make(chan struct{})
	go func() {
		t.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transport) serve() (err error) {
	_ = network.UnlinkUdsFile(t.network, t.addr)
	t.lock.Lock()
	if t.listenConfig != nil {
		t.ln, err = t.listenConfig.Listen(context.Background(), t.network, t.addr)
	} else {
		t.ln, err = net.Listen(t.network, t.addr)
	}
	t.lock.Unlock()
	if err != nil {
		return err
	}
	hlog.SystemLogger().Infof("HTTP 服务器监听地址=%s", t.ln.Addr().String())
	for {
		ctx := context.Background()
		conn, err := t.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			hlog.SystemLogger().Errorf("错误=%s", err.Error())
			return err
		}

		c := newConn(conn, t.readBufferSize, t.watermark)
		_ = c.SetReadTimeout(t.readTimeout)
		_ = c.SetWriteTimeout(t.writeTimeout)
		if t.OnAccept != nil {
			ctx = t.OnAccept(c)
		}

		t.conns.Add(1)
		go func() {
			defer t.conns.Done()
			_ = t.handler(ctx, c)
		}()
	}
}

// NewTransporter 创建标准库网络传输器。
func NewTransporter(options *config.Options) network.Transporter {
	return &transport{
		readBufferSize: options.ReadBufferSize,
		network:        options.Network,
		addr:           options.Addr,
		readTimeout:    options.ReadTimeout,
		writeTimeout:   options.WriteTimeout,
		watermark:      options.WriteHighWatermark,
		listenConfig:   options.ListenConfig,
		OnAccept:       options.OnAccept,
	}
}
