package req

import (
	"bytes"
	"fmt"
	"io"

	errs "github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/internal/bytesconv"
	"github.com/favbox/windstream/internal/bytestr"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol/http1/ext"
)

var errEOFReadHeader = errs.NewPublic("读取请求标头出错：EOF")

type headerKV struct {
	key   []byte
	value []byte
}

// RequestHead 是最小化的请求头：请求行与标头原文，只解释分帧相关的标头。
type RequestHead struct {
	method   []byte
	uri      []byte
	protocol []byte
	headers  []headerKV

	contentLength   int // -1 表示分块传输
	connectionClose bool
}

// Method 返回请求方法。
func (h *RequestHead) Method() []byte { return h.method }

// RequestURI 返回请求网址。
func (h *RequestHead) RequestURI() []byte { return h.uri }

// Protocol 返回协议版本。
func (h *RequestHead) Protocol() []byte { return h.protocol }

// ContentLength 返回正文长度，-1 表示分块传输。
func (h *RequestHead) ContentLength() int { return h.contentLength }

// ConnectionClose 报告客户端是否要求响应后关闭连接。
func (h *RequestHead) ConnectionClose() bool { return h.connectionClose }

// Peek 返回首个匹配的标头值，不区分大小写。
func (h *RequestHead) Peek(key string) []byte {
	k := bytesconv.S2b(key)
	for i := range h.headers {
		if bytes.EqualFold(h.headers[i].key, k) {
			return h.headers[i].value
		}
	}
	return nil
}

// VisitAll 按顺序遍历所有标头。
func (h *RequestHead) VisitAll(f func(key, value []byte)) {
	for i := range h.headers {
		f(h.headers[i].key, h.headers[i].value)
	}
}

// Reset 清空请求头以便复用。
func (h *RequestHead) Reset() {
	h.method = h.method[:0]
	h.uri = h.uri[:0]
	h.protocol = h.protocol[:0]
	h.headers = h.headers[:0]
	h.contentLength = 0
	h.connectionClose = false
}

// ReadHead 读取 r 至请求头 h。maxSize 为请求头的最大字节数，0 表示不限制。
//
// 连接上没有任何数据时返回 io.EOF。
func ReadHead(h *RequestHead, r network.Reader, maxSize int) error {
	n := 1
	for {
		err := tryRead(h, r, n)
		if err == nil {
			return nil
		}
		if err != errs.ErrNeedMore {
			h.Reset()
			return err
		}
		if maxSize > 0 && r.Len() >= maxSize {
			return errs.New(errs.ErrHeadTooLarge, errs.ErrorTypePublic, fmt.Sprintf("size=%d", r.Len()))
		}

		// 无更多可用数据，尝试阻塞 peek
		if n == r.Len() {
			n++
			continue
		}
		n = r.Len()
	}
}

// 先尝试读取 n 个字节，若无误再解析全部已缓冲字节。
func tryRead(h *RequestHead, r network.Reader, n int) error {
	h.Reset()
	b, err := r.Peek(n)
	if len(b) == 0 {
		// 读取请求的第 1 个字节
		if n == 1 {
			if err == nil || err == io.EOF {
				return io.EOF
			}
			return err
		}
		if err == io.EOF {
			return errEOFReadHeader
		}
		return err
	}
	b = ext.MustPeekBuffered(r)
	headLen, errParse := parse(h, b)
	if errParse != nil {
		if errParse == errs.ErrNeedMore && len(b) < n {
			// Peek 未能读满 n 字节，连接上不会再有数据
			return errEOFReadHeader
		}
		if errParse == errs.ErrNeedMore {
			return errParse
		}
		return ext.HeaderError("request", err, errParse, b)
	}
	ext.MustDiscard(r, headLen)
	return nil
}

func parse(h *RequestHead, buf []byte) (int, error) {
	// 跳过请求之间多余的空行
	skip := 0
	for skip < len(buf) && (buf[skip] == '\r' || buf[skip] == '\n') {
		skip++
	}
	headLen, err := ext.HeadLength(buf[skip:])
	if err != nil {
		return 0, err
	}

	line, rest, err := ext.NextLine(buf[skip : skip+headLen])
	if err != nil {
		return 0, err
	}
	if err = parseFirstLine(h, line); err != nil {
		return 0, err
	}
	if err = parseHeaders(h, rest); err != nil {
		return 0, err
	}
	return skip + headLen, nil
}

// 解析请求头的首行信息 - 请求方法、网址、协议
func parseFirstLine(h *RequestHead, b []byte) error {
	n := bytes.IndexByte(b, ' ')
	if n <= 0 {
		return fmt.Errorf("无法找到 http 请求方法 %q", ext.BufferSnippet(b))
	}
	h.method = append(h.method[:0], b[:n]...)
	b = b[n+1:]

	n = bytes.LastIndexByte(b, ' ')
	if n < 0 {
		h.protocol = append(h.protocol[:0], bytestr.StrHTTP10...)
		n = len(b)
	} else if n == 0 {
		return fmt.Errorf("请求网址不能为空 %q", b)
	} else {
		h.protocol = append(h.protocol[:0], b[n+1:]...)
	}
	h.uri = append(h.uri[:0], b[:n]...)
	return nil
}

func parseHeaders(h *RequestHead, buf []byte) error {
	var (
		line       []byte
		err        error
		hasLength  bool
		keepAlive  bool
		explicitCl bool
	)
	for {
		if line, buf, err = ext.NextLine(buf); err != nil {
			return err
		}
		if len(line) == 0 {
			break
		}
		n := bytes.IndexByte(line, ':')
		if n <= 0 {
			return fmt.Errorf("无效的标头行 %q", ext.BufferSnippet(line))
		}
		key := line[:n]
		// 标头键名和冒号之间不允许有空格。
		// 详见 RFC 7230, Section 3.2.4.
		if bytes.IndexByte(key, ' ') != -1 || bytes.IndexByte(key, '\t') != -1 {
			return fmt.Errorf("无效的标头键名 %q", key)
		}
		value := bytes.TrimSpace(line[n+1:])

		switch {
		case bytes.EqualFold(key, bytestr.StrContentLength):
			if h.contentLength == -1 {
				break
			}
			cl, err := bytesconv.ParseUint(value)
			if err != nil {
				return fmt.Errorf("无效的 Content-Length %q: %w", value, err)
			}
			if hasLength && cl != h.contentLength {
				return fmt.Errorf("重复的 Content-Length %q", value)
			}
			h.contentLength = cl
			hasLength = true
		case bytes.EqualFold(key, bytestr.StrTransferEncoding):
			if !bytes.EqualFold(value, bytestr.StrIdentity) {
				h.contentLength = -1
			}
		case bytes.EqualFold(key, bytestr.StrConnection):
			if bytes.EqualFold(value, bytestr.StrClose) {
				h.connectionClose = true
				explicitCl = true
			} else if bytes.EqualFold(value, bytestr.StrKeepAlive) {
				keepAlive = true
			}
		}

		idx := len(h.headers)
		if idx < cap(h.headers) {
			h.headers = h.headers[:idx+1]
		} else {
			h.headers = append(h.headers, headerKV{})
		}
		kv := &h.headers[idx]
		kv.key = append(kv.key[:0], key...)
		kv.value = append(kv.value[:0], value...)
	}

	// 除非设置了 'Connection: keep-alive'，否则关闭非 http/1.1 请求的连接
	if !explicitCl && !bytes.Equal(h.protocol, bytestr.StrHTTP11) {
		h.connectionClose = !keepAlive
	}
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
