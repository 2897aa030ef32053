package config

import (
	"context"
	"net"
	"time"

	"github.com/favbox/windstream/network"
)

const (
	defaultKeepAliveTimeout   = 1 * time.Minute
	defaultReadTimeout        = 3 * time.Minute
	defaultWaitExitTimeout    = 5 * time.Second
	defaultNetwork            = "tcp"
	defaultAddr               = ":8888"
	defaultReadBufferSize     = 4 * 1024
	defaultWriteHighWatermark = 64 * 1024
	defaultMaxWritableSpins   = 1024
	defaultServerName         = "windstream"
)

// Option 是用于配置 Options 唯一结构体。
type Option struct {
	F func(o *Options)
}

// Options 是配置项的结构体。
type Options struct {
	// KeepAliveTimeout 是长连接的超时时间，默认 1 分钟。
	KeepAliveTimeout time.Duration

	// ReadTimeout 是网络库读取的超时时间，默认 3 分钟，0 代表永不超时。
	ReadTimeout time.Duration

	// WriteTimeout 是网络库刷新写缓冲的超时时间，默认为 0，即永不超时。
	WriteTimeout time.Duration

	// WriteHighWatermark 是 netpoll 写缓冲的饱和水位线，默认 64KB。
	// 写缓冲中未提交的字节数达到该值后，ByteSink 报告饱和。
	WriteHighWatermark int

	// MaxWritableSpins 是一次可写通知内，可写回调连续返回 true 时的最大重入次数，默认 1024。
	MaxWritableSpins int

	// MaxRequestBodySize 是请求正文的最大字节数，默认 0 即不限制。正文按块流式交付，从不整体缓存。
	MaxRequestBodySize int

	ReadBufferSize        int           // 初始的读缓冲大小，也是请求头的最大尺寸，默认 4KB
	DisableKeepalive      bool          // 是否禁用长连接，默认否
	NoDefaultDate         bool          // 禁止响应头添加 Date 的默认字段值，默认否
	NoDefaultServerHeader bool          // 是否不要默认的服务器名称标头，默认否
	ServerName            string        // 服务器名称，默认 "windstream"
	Network               string        // 网络协议，可选 "tcp", "unix"，默认 "tcp"
	Addr                  string        // 监听地址，默认 ":8888"
	ExitWaitTimeout       time.Duration // 优雅退出的等待时间，默认 5s
	ListenConfig          *net.ListenConfig

	// TransporterNewer 是传输器的自定义创建函数，默认为 netpoll 传输器。
	TransporterNewer func(opt *Options) network.Transporter

	// OnAccept 在接受连接之后、开始读取之前调用。
	OnAccept func(conn net.Conn) context.Context
}

// Apply 将指定的一组配置方法 opts 应用到配置项上。
func (o *Options) Apply(opts []Option) {
	for _, opt := range opts {
		opt.F(o)
	}
}

// NewOptions 创建基于给定配置函数的配置项。
func NewOptions(opts []Option) *Options {
	options := &Options{
		KeepAliveTimeout:   defaultKeepAliveTimeout,
		ReadTimeout:        defaultReadTimeout,
		WriteHighWatermark: defaultWriteHighWatermark,
		MaxWritableSpins:   defaultMaxWritableSpins,
		ReadBufferSize:     defaultReadBufferSize,
		ServerName:         defaultServerName,
		Network:            defaultNetwork,
		Addr:               defaultAddr,
		ExitWaitTimeout:    defaultWaitExitTimeout,
	}
	options.Apply(opts)
	return options
}
