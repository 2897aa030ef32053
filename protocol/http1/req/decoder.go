package req

import (
	"github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol/http1/ext"
)

// 单次交付的最大块长，避免一次借出过大的读缓冲。
const maxChunkSize = 64 * 1024

var errBodyTooLarge = errors.New(errors.ErrBodyTooLarge, errors.ErrorTypePublic, "请求正文")

// BodyDecoder 按请求头声明的分帧方式增量解码请求正文。
type BodyDecoder struct {
	chunked     bool
	remain      int // 定长模式剩余字节数，分块模式为当前块剩余字节数
	needCRLF    bool
	done        bool
	read        int
	maxBodySize int
}

// NewBodyDecoder 创建正文解码器。contentLength 为 -1 表示分块传输；maxBodySize 为 0 表示不限制。
func NewBodyDecoder(contentLength, maxBodySize int) *BodyDecoder {
	d := &BodyDecoder{maxBodySize: maxBodySize}
	if contentLength < 0 {
		d.chunked = true
	} else {
		d.remain = contentLength
	}
	return d
}

// Done 报告正文是否已完整解码。
func (d *BodyDecoder) Done() bool {
	return d.done
}

// Next 返回下一个正文块，last 标记最后一块。
//
// chunk 借用自 r 的读缓冲，仅在下一次读取或 r.Release 之前有效。
func (d *BodyDecoder) Next(r network.Reader) (chunk []byte, last bool, err error) {
	if d.done {
		return nil, true, nil
	}
	if !d.chunked {
		if d.maxBodySize > 0 && d.remain > d.maxBodySize {
			return nil, false, errBodyTooLarge
		}
		if d.remain == 0 {
			d.done = true
			return nil, true, nil
		}
		chunk, err = d.borrow(r)
		if err != nil {
			return nil, false, err
		}
		if d.remain == 0 {
			d.done = true
			return chunk, true, nil
		}
		return chunk, false, nil
	}

	if d.remain == 0 {
		if d.needCRLF {
			if err = ext.SkipCRLF(r); err != nil {
				return nil, false, err
			}
			d.needCRLF = false
		}
		size, err := ext.ParseChunkSize(r)
		if err != nil {
			return nil, false, err
		}
		if size == 0 {
			if err = ext.SkipTrailer(r); err != nil {
				return nil, false, err
			}
			d.done = true
			return nil, true, nil
		}
		if d.maxBodySize > 0 && d.read+size > d.maxBodySize {
			return nil, false, errBodyTooLarge
		}
		d.remain = size
	}
	chunk, err = d.borrow(r)
	if err != nil {
		return nil, false, err
	}
	if d.remain == 0 {
		d.needCRLF = true
	}
	return chunk, false, nil
}

// 借出当前可读的至多 remain 个字节。
func (d *BodyDecoder) borrow(r network.Reader) ([]byte, error) {
	n := r.Len()
	if n == 0 {
		if _, err := r.Peek(1); err != nil {
			return nil, unexpectedEOF(err)
		}
		n = r.Len()
	}
	if n > d.remain {
		n = d.remain
	}
	if n > maxChunkSize {
		n = maxChunkSize
	}
	b, err := r.Peek(n)
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	if err = r.Skip(n); err != nil {
		return nil, err
	}
	d.remain -= n
	d.read += n
	return b, nil
}
