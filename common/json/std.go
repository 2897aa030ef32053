//go:build stdjson || !(amd64 && (linux || windows || darwin))

// Package json 提供诊断输出所用的 JSON 编解码，sonic 不可用时回退到标准库。
package json

import "encoding/json"

// Name 是当前生效的 JSON 实现名称。
const Name = "encoding/json"

var (
	Marshal   = json.Marshal
	Unmarshal = json.Unmarshal
)

// MarshalToString 将 v 编码为 JSON 字符串。
func MarshalToString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
