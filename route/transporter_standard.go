//go:build !(linux || darwin)

package route

import "github.com/favbox/windstream/network/standard"

// 默认网络传输器（基于标准库实现）
var defaultTransporter = standard.NewTransporter
