//go:build (linux || windows || darwin) && amd64 && !stdjson

// Package json 提供诊断输出所用的 JSON 编解码，amd64 上使用 sonic。
package json

import "github.com/bytedance/sonic"

// Name 是当前生效的 JSON 实现名称。
const Name = "sonic"

var api = sonic.ConfigStd

var (
	// Marshal 将 v 编码为 JSON。
	Marshal = api.Marshal
	// MarshalToString 将 v 编码为 JSON 字符串，免去一次拷贝。
	MarshalToString = api.MarshalToString
	// Unmarshal 将 JSON 解码至 v。
	Unmarshal = api.Unmarshal
)
