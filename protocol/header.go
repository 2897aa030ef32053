package protocol

import (
	"bytes"

	"github.com/favbox/windstream/internal/bytesconv"
	"github.com/favbox/windstream/internal/bytestr"
)

type headerKV struct {
	key   []byte
	value []byte
}

// ResponseHeader 收集响应的状态行与标头，在第一次正文操作时一次性序列化。
//
// 标头值不做注入字符校验，由构造 name/value 的调用方负责。
// 分帧相关标头（Content-Length、Transfer-Encoding）由引擎根据分帧模式生成，手动设置会被忽略。
type ResponseHeader struct {
	status  []byte
	headers []headerKV

	noDefaultDate bool
	hasDate       bool
	hasServer     bool
	connClose     bool
}

// SetStatus 设置状态行（不含协议），如 "200 OK"。
func (h *ResponseHeader) SetStatus(status string) {
	h.status = append(h.status[:0], status...)
}

// Status 返回状态行，未设置时返回默认状态。
func (h *ResponseHeader) Status() []byte {
	if len(h.status) == 0 {
		return bytestr.StrDefaultStat
	}
	return h.status
}

// HasStatus 判断是否显式设置过状态。
func (h *ResponseHeader) HasStatus() bool {
	return len(h.status) > 0
}

// Add 追加一个标头。返回 false 表示该标头由引擎管理而被忽略。
func (h *ResponseHeader) Add(key, value string) bool {
	k := bytesconv.S2b(key)
	switch {
	case bytes.EqualFold(k, bytestr.StrContentLength), bytes.EqualFold(k, bytestr.StrTransferEncoding):
		return false
	case bytes.EqualFold(k, bytestr.StrDate):
		h.hasDate = true
	case bytes.EqualFold(k, bytestr.StrServer):
		h.hasServer = true
	case bytes.EqualFold(k, bytestr.StrConnection):
		if bytes.EqualFold(bytesconv.S2b(value), bytestr.StrClose) {
			h.connClose = true
		}
	}

	n := len(h.headers)
	if n < cap(h.headers) {
		h.headers = h.headers[:n+1]
	} else {
		h.headers = append(h.headers, headerKV{})
	}
	kv := &h.headers[n]
	kv.key = append(kv.key[:0], key...)
	kv.value = append(kv.value[:0], value...)
	return true
}

// Len 返回用户标头数量。
func (h *ResponseHeader) Len() int {
	return len(h.headers)
}

// ConnectionClose 判断应用是否要求响应后关闭连接。
func (h *ResponseHeader) ConnectionClose() bool {
	return h.connClose
}

// SetConnectionClose 追加 "Connection: close"。
func (h *ResponseHeader) SetConnectionClose() {
	if !h.connClose {
		h.Add("Connection", "close")
	}
}

// SetNoDefaultDate 禁止自动追加 Date 标头。
func (h *ResponseHeader) SetNoDefaultDate(b bool) {
	h.noDefaultDate = b
}

// AppendBytes 将完整的响应头追加到 dst 并返回。
//
// length 仅在 FramingLength 模式下使用；serverName 为空时不追加 Server 标头。
func (h *ResponseHeader) AppendBytes(dst []byte, framing Framing, length uint64, serverName []byte) []byte {
	dst = append(dst, bytestr.StrHTTP11...)
	dst = append(dst, ' ')
	dst = append(dst, h.Status()...)
	dst = append(dst, bytestr.StrCRLF...)

	for i := range h.headers {
		kv := &h.headers[i]
		dst = appendHeaderLine(dst, kv.key, kv.value)
	}

	if len(serverName) > 0 && !h.hasServer {
		dst = appendHeaderLine(dst, bytestr.StrServer, serverName)
	}
	if !h.noDefaultDate && !h.hasDate {
		dst = appendHeaderLine(dst, bytestr.StrDate, ServerDate())
	}

	switch framing {
	case FramingChunked:
		dst = appendHeaderLine(dst, bytestr.StrTransferEncoding, bytestr.StrChunked)
	case FramingLength:
		dst = append(dst, bytestr.StrContentLength...)
		dst = append(dst, bytestr.StrColonSpace...)
		dst = bytesconv.AppendUint(dst, length)
		dst = append(dst, bytestr.StrCRLF...)
	}

	return append(dst, bytestr.StrCRLF...)
}

// Reset 清空标头以便复用。
func (h *ResponseHeader) Reset() {
	h.status = h.status[:0]
	h.headers = h.headers[:0]
	h.noDefaultDate = false
	h.hasDate = false
	h.hasServer = false
	h.connClose = false
}

// 附加一个标头行。
// 形如 "key: value\r\n"
func appendHeaderLine(dst, key, value []byte) []byte {
	dst = append(dst, key...)
	dst = append(dst, bytestr.StrColonSpace...)
	dst = append(dst, value...)
	return append(dst, bytestr.StrCRLF...)
}
