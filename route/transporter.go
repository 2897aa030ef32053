package route

import (
	"github.com/favbox/windstream/common/config"
	"github.com/favbox/windstream/network"
)

// SetTransporter 设置全局默认的网络传输器。
func SetTransporter(transporter func(options *config.Options) network.Transporter) {
	defaultTransporter = transporter
}
