package protocol

import (
	"fmt"
	"runtime/debug"
)

type (
	// WritableFunc 在传输层由饱和转为可写时调用，offset 为应从此处继续写入的正文偏移。
	// 返回 true 表示希望立即继续写入。
	WritableFunc func(offset uint64) bool

	// AbortedFunc 在连接中止时调用，至多一次。
	AbortedFunc func()

	// DataFunc 接收请求正文块，last 标记最后一块。
	// chunk 仅在调用期间有效，如需保留须自行拷贝。
	DataFunc func(chunk []byte, last bool)
)

// Slot 持有至多一个回调。存入新回调会替换并释放旧回调，旧回调不再被调用。
type Slot[T any] struct {
	fn  T
	set bool
}

// Store 存入回调，返回是否替换了旧回调。
func (s *Slot[T]) Store(fn T) (replaced bool) {
	replaced = s.set
	s.fn = fn
	s.set = true
	return
}

// Load 返回当前回调。
func (s *Slot[T]) Load() (fn T, ok bool) {
	return s.fn, s.set
}

// Take 取出并清空当前回调。
func (s *Slot[T]) Take() (fn T, ok bool) {
	fn, ok = s.fn, s.set
	s.Release()
	return
}

// Release 释放回调而不调用。
func (s *Slot[T]) Release() {
	var zero T
	s.fn = zero
	s.set = false
}

// Registry 是单个响应的回调表：可写、中止、请求正文各一个槽位。
type Registry struct {
	Writable Slot[WritableFunc]
	Aborted  Slot[AbortedFunc]
	Data     Slot[DataFunc]
}

// Release 释放全部回调而不调用。
func (r *Registry) Release() {
	r.Writable.Release()
	r.Aborted.Release()
	r.Data.Release()
}

// PanicError 包装回调中恢复的 panic。
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("回调 panic: %v", e.Value)
}

// Invoke 调用 fn，并将其中的 panic 转为 *PanicError 返回。
func Invoke(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}
