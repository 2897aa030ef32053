package resp

import (
	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/favbox/windstream/network"
)

// 滞留段：传输层未接收的分帧字节或正文字节。
type segment struct {
	buf  []byte // mcache 分配的原始切片，释放时原样归还
	off  int
	body bool // 是否计入正文偏移
}

// backlog 按顺序保存未被传输层接收的字节。
//
// 只在单次 Write/End 未被完整接收时写入，非空期间拒绝新的 Write。
type backlog struct {
	segs    []segment
	size    int
	bodyLen int
}

func (b *backlog) empty() bool {
	return b.size == 0
}

// 拷贝 p 的剩余部分入队。
func (b *backlog) push(p []byte, body bool) {
	if len(p) == 0 {
		return
	}
	buf := mcache.Malloc(len(p))
	copy(buf, p)
	b.segs = append(b.segs, segment{buf: buf, body: body})
	b.size += len(p)
	if body {
		b.bodyLen += len(p)
	}
}

// drain 尽可能将滞留字节交给 sink。
//
// 返回其中被接收的正文字节数、是否已清空，以及 sink 是否报告饱和。
func (b *backlog) drain(sink network.ByteSink) (bodyAccepted uint64, drained, saturated bool) {
	for len(b.segs) > 0 {
		s := &b.segs[0]
		p := s.buf[s.off:]
		n, sat := sink.TryWrite(p)
		s.off += n
		b.size -= n
		if s.body {
			b.bodyLen -= n
			bodyAccepted += uint64(n)
		}
		if n < len(p) {
			return bodyAccepted, false, true
		}
		b.pop()
		if sat {
			return bodyAccepted, len(b.segs) == 0, true
		}
	}
	return bodyAccepted, true, false
}

func (b *backlog) pop() {
	mcache.Free(b.segs[0].buf)
	copy(b.segs, b.segs[1:])
	b.segs[len(b.segs)-1] = segment{}
	b.segs = b.segs[:len(b.segs)-1]
}

// release 丢弃全部滞留字节。
func (b *backlog) release() {
	for i := range b.segs {
		mcache.Free(b.segs[i].buf)
		b.segs[i] = segment{}
	}
	b.segs = b.segs[:0]
	b.size = 0
	b.bodyLen = 0
}
