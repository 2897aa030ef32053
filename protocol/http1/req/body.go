package req

import (
	"github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/protocol"
)

// BodyReader 将请求正文块按到达顺序交给唯一的消费者。
//
// 与 Response 共享连接的中止信号，生命周期相互独立。非并发安全。
type BodyReader struct {
	callbacks *protocol.Registry
	ended     bool
	aborted   bool
	delivered int
}

// NewBodyReader 创建正文读取器，消费者存放于 callbacks。
func NewBodyReader(callbacks *protocol.Registry) *BodyReader {
	if callbacks == nil {
		callbacks = &protocol.Registry{}
	}
	return &BodyReader{callbacks: callbacks}
}

// OnData 注册正文消费者，替换并释放之前注册的消费者。
//
// chunk 仅在回调期间有效，须保留时自行拷贝。last 为 true 的块（可能为空）恰好出现一次。
func (b *BodyReader) OnData(fn protocol.DataFunc) error {
	if b.ended || b.aborted {
		return errors.NewInvalidState("OnData", "请求正文已结束")
	}
	b.callbacks.Data.Store(fn)
	return nil
}

// Feed 由传输驱动调用，交付一个正文块。未注册消费者时丢弃该块。
//
// 消费者 panic 时返回 *protocol.PanicError，由连接负责关闭。
func (b *BodyReader) Feed(chunk []byte, last bool) error {
	if b.ended || b.aborted {
		return errors.NewInvalidState("Feed", "请求正文已结束")
	}
	if last {
		b.ended = true
	}
	fn, ok := b.callbacks.Data.Load()
	if last {
		b.callbacks.Data.Release()
	}
	if !ok || fn == nil {
		return nil
	}
	b.delivered += len(chunk)
	return protocol.Invoke(func() { fn(chunk, last) })
}

// Abort 由连接在中止信号触发时调用，之后不再交付任何块。
func (b *BodyReader) Abort() {
	if b.ended || b.aborted {
		return
	}
	b.aborted = true
	b.callbacks.Data.Release()
}

// Ended 报告最后一块是否已交付。
func (b *BodyReader) Ended() bool {
	return b.ended
}

// Aborted 报告是否因中止而停止交付。
func (b *BodyReader) Aborted() bool {
	return b.aborted
}

// Delivered 返回已交给消费者的正文字节数。
func (b *BodyReader) Delivered() int {
	return b.delivered
}
