package network

import (
	"net"
	"time"
)

// ByteSink 封装传输层的非阻塞写入原语。
type ByteSink interface {
	// TryWrite 尝试将 p 交给传输层，返回实际接收的字节数，以及写入后是否饱和（背压）。
	//
	// 不阻塞、不在内部重试。实现方不得在返回后继续引用 p。
	TryWrite(p []byte) (accepted int, saturated bool)

	// BufferedAmount 返回已接收但尚未发往网络的字节数，仅用于诊断。
	BufferedAmount() uint64
}

// Pump 在驱动协程中推进写出，可能阻塞驱动协程，但从不在引擎内部调用。
type Pump interface {
	// Flush 将已接收的数据提交到网络。
	Flush() error

	// AwaitWritable 阻塞至 ByteSink 能再次接收数据，或连接出错。
	AwaitWritable() error
}

// CloseNotifier 由能感知对端断开的连接实现。
type CloseNotifier interface {
	// Closed 返回连接关闭时被关闭的通道。
	Closed() <-chan struct{}
}

// Reader 用于零拷贝读取。
type Reader interface {
	// Len 返回可读数据总长度。
	Len() int

	// Peek 返回 n 个字节，但不移动指针。
	Peek(n int) ([]byte, error)

	// Skip 跳过 n 个字节。
	Skip(n int) error

	// ReadByte 读取 1 个字节，并移动指针。
	ReadByte() (byte, error)

	// Release 释放所有读取切片占用的内存。
	//
	// 调用 Release 后，通过 Peek 等方法获取的切片将成为无效地址，无法再使用。
	Release() error
}

// Conn 表示引擎所需的连接：读请求、非阻塞写响应、由驱动协程推进写出。
type Conn interface {
	net.Conn
	Reader
	ByteSink
	Pump

	// SetReadTimeout 设置每个连接读取进程的超时时长。
	SetReadTimeout(t time.Duration) error
}

// SpecificErrorHandler 由能识别可忽略错误（如对端重置）的连接实现。
type SpecificErrorHandler interface {
	// HandleSpecificError 判断特定错误是否需要忽略。
	HandleSpecificError(err error, remoteIP string) (needIgnore bool)
}
