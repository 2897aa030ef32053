package mock

import (
	"bufio"
	"bytes"
	"io"
)

// ZeroCopyReader 模拟的零拷贝读取器。
//
// 测试解析函数时使用，数据完整缓存在内存中。
type ZeroCopyReader struct {
	*bufio.Reader
}

func (m ZeroCopyReader) Peek(n int) ([]byte, error) {
	b, err := m.Reader.Peek(n)
	// 若 n 大于缓冲区，只会返回 bufio.ErrBufferFull，哪怕底层读取器返回了 io.EOF。
	// 所以用另一个 Peek 来获取真实错误。
	if err == bufio.ErrBufferFull && len(b) == 0 {
		return m.Reader.Peek(1)
	}
	return b, err
}

func (m ZeroCopyReader) Skip(n int) (err error) {
	_, err = m.Reader.Discard(n)
	return
}

func (m ZeroCopyReader) Release() (err error) {
	return nil
}

func (m ZeroCopyReader) Len() (length int) {
	return m.Reader.Buffered()
}

// NewZeroCopyReader 创建模拟的零拷贝读取器。
func NewZeroCopyReader(r string) ZeroCopyReader {
	size := len(r)
	if size < 16 {
		size = 16
	}
	br := bufio.NewReaderSize(bytes.NewBufferString(r), size)
	return ZeroCopyReader{br}
}

// EOFReader 任何读取都返回 io.EOF。
type EOFReader struct{}

func (e *EOFReader) Peek(n int) ([]byte, error) {
	return []byte{}, io.EOF
}

func (e *EOFReader) Skip(n int) error {
	return nil
}

func (e *EOFReader) Release() error {
	return nil
}

func (e *EOFReader) Len() int {
	return 0
}

func (e *EOFReader) ReadByte() (byte, error) {
	return ' ', io.EOF
}
