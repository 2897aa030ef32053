//go:build linux || darwin

package route

import "github.com/favbox/windstream/network/netpoll"

// 默认网络传输器（基于 netpoll 实现，另外可选 standard.NewTransporter）
var defaultTransporter = netpoll.NewTransporter
