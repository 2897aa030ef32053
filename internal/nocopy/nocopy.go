// Package nocopy 提供禁止按值拷贝的标记。
package nocopy

// NoCopy 嵌入结构体后，go vet 的 copylocks 检查会报告按值拷贝。
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}
