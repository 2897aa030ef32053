package protocol

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/favbox/windstream/internal/bytesconv"
)

var (
	serverDate     atomic.Value
	serverDateOnce sync.Once
)

// ServerDate 返回每秒刷新一次的 HTTP 日期，首次调用时启动刷新协程。
func ServerDate() []byte {
	serverDateOnce.Do(updateServerDate)
	return serverDate.Load().([]byte)
}

func updateServerDate() {
	refreshServerDate()
	go func() {
		for {
			time.Sleep(time.Second)
			refreshServerDate()
		}
	}()
}

func refreshServerDate() {
	b := bytesconv.AppendHTTPDate(make([]byte, 0, len(http.TimeFormat)), time.Now())
	serverDate.Store(b)
}
