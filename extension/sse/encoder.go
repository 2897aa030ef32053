package sse

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Encode 将事件编码后写入 w。
func Encode(w io.Writer, e *Event) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = AppendEvent(buf.B, e)
	_, err := w.Write(buf.B)
	return err
}

// AppendEvent 将事件按 text/event-stream 格式追加到 dst 并返回。
//
// id 与 event 字段中的换行被转义；data 中的换行拆分为多个 data 行。
func AppendEvent(dst []byte, e *Event) []byte {
	if len(e.ID) > 0 {
		dst = append(dst, "id:"...)
		dst = appendField(dst, e.ID)
		dst = append(dst, '\n')
	}
	if len(e.Event) > 0 {
		dst = append(dst, "event:"...)
		dst = appendField(dst, e.Event)
		dst = append(dst, '\n')
	}
	if e.Retry > 0 {
		dst = append(dst, "retry:"...)
		dst = strconv.AppendUint(dst, e.Retry, 10)
		dst = append(dst, '\n')
	}

	dst = append(dst, "data:"...)
	for _, c := range e.Data {
		switch c {
		case '\n':
			dst = append(dst, "\ndata:"...)
		case '\r':
			dst = append(dst, `\r`...)
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, "\n\n"...)
}

func appendField(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			dst = append(dst, `\n`...)
		case '\r':
			dst = append(dst, `\r`...)
		default:
			dst = append(dst, s[i])
		}
	}
	return dst
}
