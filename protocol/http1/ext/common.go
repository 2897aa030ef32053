// Package ext 提供 HTTP/1.1 分帧相关的公共函数：分块编解码、请求头扫描。
package ext

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/internal/bytesconv"
	"github.com/favbox/windstream/internal/bytestr"
	"github.com/favbox/windstream/network"
)

var errBrokenChunk = errs.New(errs.ErrBrokenChunk, errs.ErrorTypePublic, "无法在分块数据结尾找到 crlf")

// MustPeekBuffered 必须返回 r 中全部数据，若无数据或出错就触发恐慌。
func MustPeekBuffered(r network.Reader) []byte {
	l := r.Len()
	buf, err := r.Peek(l)
	if len(buf) == 0 || err != nil {
		panic(fmt.Sprintf("bufio.Reader.Peek() 返回异常数据 (%q, %v)", buf, err))
	}

	return buf
}

// MustDiscard 必须跳过 r 的前 n 个字节，否则就触发恐慌。
func MustDiscard(r network.Reader, n int) {
	if err := r.Skip(n); err != nil {
		panic(fmt.Sprintf("bufio.Reader.Discard(%d) failed: %s", n, err))
	}
}

// BufferSnippet 返回字节切片的片段。
//
// 形如: <前缀 20 位>...<后缀=总长度-20位>
//
// 若前缀长 >= 后缀长，则直接返回原始切片。
func BufferSnippet(b []byte) string {
	n := len(b)
	start := 20
	end := n - start
	if start >= end {
		start = n
		end = n
	}
	bStart, bEnd := b[:start], b[end:]
	if len(bEnd) == 0 {
		return fmt.Sprintf("%q", b)
	}
	return fmt.Sprintf("%q...%q", bStart, bEnd)
}

// HeadLength 返回 buf 中以空行结尾的完整消息头长度（含空行）。
// 数据不足时返回 errs.ErrNeedMore。
func HeadLength(buf []byte) (int, error) {
	n := 0
	for {
		m := bytes.IndexByte(buf, '\n')
		if m < 0 {
			return 0, errs.ErrNeedMore
		}
		m++
		n += m
		if (m == 2 && buf[0] == '\r') || m == 1 {
			return n, nil
		}
		buf = buf[m:]
	}
}

// NextLine 返回 b 的第一行（不含行尾）与其余部分。
func NextLine(b []byte) ([]byte, []byte, error) {
	nNext := bytes.IndexByte(b, '\n')
	if nNext < 0 {
		return nil, nil, errs.ErrNeedMore
	}
	n := nNext
	if n > 0 && b[n-1] == '\r' {
		n--
	}
	return b[:n], b[nNext+1:], nil
}

// AppendChunkHead 追加块大小行。
// 形如 "1a\r\n"
func AppendChunkHead(dst []byte, n int) []byte {
	dst = bytesconv.AppendHexUint(dst, uint64(n))
	return append(dst, bytestr.StrCRLF...)
}

// ParseChunkSize 从 r 中解析块大小行，并跳过行尾的 CRLF。
func ParseChunkSize(r network.Reader) (int, error) {
	n, err := bytesconv.ReadHexInt(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return -1, err
	}
	for {
		c, err := r.ReadByte()
		if err != nil {
			return -1, errs.NewPublicf("无法在块大小的后面读到 '\r': %s", err)
		}
		// 跳过块大小后尾随的所有空白与块扩展
		if c == ' ' || c == ';' {
			continue
		}
		if c != '\r' {
			if c >= 0x20 && c < 0x7f {
				continue
			}
			return -1, errs.NewPublicf("块大小的后面发现异常字符 %q。期望 %q", c, '\r')
		}
		break
	}
	c, err := r.ReadByte()
	if err != nil {
		return -1, errs.NewPublicf("无法在块大小的后面读到 '\n': %s", err)
	}
	if c != '\n' {
		return -1, errs.NewPublicf("块大小的后面发现异常字符 %q。期望 %q", c, '\n')
	}
	return n, nil
}

// SkipCRLF 跳过读取器开头的回车换行符 crlf。
func SkipCRLF(r network.Reader) error {
	p, err := r.Peek(len(bytestr.StrCRLF))
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if !bytes.Equal(p, bytestr.StrCRLF) {
		return errBrokenChunk
	}
	return r.Skip(len(p))
}

// SkipTrailer 跳过分块正文末尾的挂车标头及结尾空行。
func SkipTrailer(r network.Reader) error {
	n := 1
	for {
		err := trySkipTrailer(r, n)
		if err == nil {
			return nil
		}
		if err != errs.ErrNeedMore {
			return err
		}
		// 无更多可用数据，尝试阻塞 peek
		if n == r.Len() {
			n++
			continue
		}
		n = r.Len()
	}
}

func trySkipTrailer(r network.Reader, n int) error {
	b, err := r.Peek(n)
	if len(b) == 0 {
		if err != nil && strings.Contains(err.Error(), "timeout") {
			return errs.New(errs.ErrTimeout, errs.ErrorTypePublic, "读取挂车标头")
		}
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	b = MustPeekBuffered(r)
	trailerLen, errParse := skipTrailer(b)
	if errParse != nil {
		if len(b) < n && err != nil {
			return io.ErrUnexpectedEOF
		}
		return errParse
	}
	MustDiscard(r, trailerLen)
	return nil
}

func skipTrailer(buf []byte) (int, error) {
	skip := 0
	strCRLFLen := len(bytestr.StrCRLF)
	for {
		index := bytes.Index(buf, bytestr.StrCRLF)
		if index == -1 {
			return 0, errs.ErrNeedMore
		}

		buf = buf[index+strCRLFLen:]
		skip += index + strCRLFLen

		if index == 0 {
			return skip, nil
		}
	}
}
