package network

import "context"

// Transporter 表示网络传输层接口。
type Transporter interface {
	// ListenAndServe 监听并为每个连接在独立协程中调用 onData。
	ListenAndServe(onData OnData) error

	// Close 立即关闭传输器。
	Close() error

	// Shutdown 平滑关闭传输器。
	Shutdown(ctx context.Context) error
}

// OnData 连接就绪时的回调函数，conn 实现 Conn。返回即表示连接处理结束。
type OnData func(ctx context.Context, conn any) error
