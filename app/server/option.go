package server

import (
	"context"
	"net"
	"time"

	"github.com/favbox/windstream/common/config"
	"github.com/favbox/windstream/network"
)

// WithHostPorts 指定监听的地址和端口。默认值：":8888"。
func WithHostPorts(addr string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Addr = addr
	}}
}

// WithReadTimeout 设置网络库读取数据超时时间。默认值 3 分钟。
//
// 当读超时时连接将关闭。
func WithReadTimeout(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ReadTimeout = t
	}}
}

// WithWriteTimeout 设置网络库阻塞写出的超时时间。默认值：无限长。
//
// 当写超时时响应被中止，连接将关闭。
func WithWriteTimeout(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.WriteTimeout = t
	}}
}

// WithKeepAliveTimeout 设置长连接两次请求之间的闲置超时时间。
//
// 在大多数情况下，无需关心该选项。
// 默认值：1 分钟。
func WithKeepAliveTimeout(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.KeepAliveTimeout = t
	}}
}

// WithWriteHighWatermark 设置写缓冲的饱和水位线，达到后响应进入背压。
// 默认值：64KB。
func WithWriteHighWatermark(size int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.WriteHighWatermark = size
	}}
}

// WithMaxWritableSpins 设置单次可写通知内，可写回调连续返回 true 时的最大调用次数。
// 默认值：1024。
func WithMaxWritableSpins(n int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxWritableSpins = n
	}}
}

// WithMaxRequestBodySize 限制请求正文的最大字节数。
// 默认值：0，不限制。正文总是按块流式交付。
func WithMaxRequestBodySize(bs int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxRequestBodySize = bs
	}}
}

// WithKeepAlive 是否启用长连接。默认值：true。
func WithKeepAlive(b bool) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.DisableKeepalive = !b
	}}
}

// WithServerName 设置 Server 标头的值。默认值："windstream"。
func WithServerName(name string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ServerName = name
	}}
}

// WithDisableDefaultDate 是否不要默认的 Date 标头。默认值：false。
func WithDisableDefaultDate(b bool) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.NoDefaultDate = b
	}}
}

// WithDisableDefaultServerHeader 是否不要默认的 Server 标头。默认值：false。
func WithDisableDefaultServerHeader(b bool) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.NoDefaultServerHeader = b
	}}
}

// WithNetwork 网络协议，可选：tcp，unix（unix domain socket）。
// 默认值：tcp。
func WithNetwork(nw string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Network = nw
	}}
}

// WithExitWaitTime 优雅退出的等待时间。
//
// 服务器会停止建立新连接，并等待进行中的响应结束。
// 当到达设定的时间关闭服务器。若所有连接均已关闭则可提前关闭。
//
// 默认值：5 秒。
func WithExitWaitTime(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ExitWaitTimeout = t
	}}
}

// WithListenConfig 设置监听器配置。如配置是否允许端口重用。
func WithListenConfig(l *net.ListenConfig) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ListenConfig = l
	}}
}

// WithTransport 更换网络传输器。默认值：netpoll.NewTransporter。
func WithTransport(transporter func(opts *config.Options) network.Transporter) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.TransporterNewer = transporter
	}}
}

// WithReadBufferSize 设置读缓冲区字节数，同时限制 HTTP 标头大小。
// 默认值：4KB。
func WithReadBufferSize(size int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ReadBufferSize = size
	}}
}

// WithOnAccept 设置新连接被接受、尚未读取数据时的回调函数。
//
// 默认值：nil。
func WithOnAccept(fn func(conn net.Conn) context.Context) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.OnAccept = fn
	}}
}
