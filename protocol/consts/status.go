package consts

import (
	"net/http"
	"strconv"
	"sync/atomic"
)

// 常用 HTTP 状态码。
const (
	StatusOK                          = 200
	StatusNoContent                   = 204
	StatusPartialContent              = 206
	StatusBadRequest                  = 400
	StatusNotFound                    = 404
	StatusMethodNotAllowed            = 405
	StatusRequestTimeout              = 408
	StatusRequestTooLarge             = 413
	StatusRequestHeaderFieldsTooLarge = 431
	StatusInternalServerError         = 500
	StatusServiceUnavailable          = 503
)

// DefaultStatus 是未显式写入状态时使用的状态行（不含协议）。
const DefaultStatus = "200 OK"

var statusLines atomic.Value

func init() {
	statusLines.Store(make(map[int]string))
}

// StatusLine 返回指定状态码的状态行（不含协议与换行），如 "404 Not Found"。
//
// 未知状态码没有原因短语，如 "599 "。该方法在多协程中并发安全。
func StatusLine(statusCode int) string {
	m := statusLines.Load().(map[int]string)
	if s, ok := m[statusCode]; ok {
		return s
	}

	s := strconv.Itoa(statusCode) + " " + http.StatusText(statusCode)
	newM := make(map[int]string, len(m)+1)
	for k, v := range m {
		newM[k] = v
	}
	newM[statusCode] = s
	statusLines.Store(newM)
	return s
}
