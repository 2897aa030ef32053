package protocol

// AbortSignal 是单次触发的中止通知：对端断开或连接被强制关闭。
//
// 观察者按订阅顺序被调用，之后全部释放。非并发安全，须在连接所属的执行上下文中使用。
type AbortSignal struct {
	fired     bool
	observers []func()
}

// Subscribe 订阅中止通知。若已触发，则忽略。
func (s *AbortSignal) Subscribe(f func()) {
	if s.fired || f == nil {
		return
	}
	s.observers = append(s.observers, f)
}

// Fire 触发中止，仅首次调用生效并返回 true。
func (s *AbortSignal) Fire() bool {
	if s.fired {
		return false
	}
	s.fired = true
	observers := s.observers
	s.observers = nil
	for _, f := range observers {
		f()
	}
	return true
}

// Fired 判断是否已触发。
func (s *AbortSignal) Fired() bool {
	return s.fired
}

// Reset 清空状态以便复用。
func (s *AbortSignal) Reset() {
	s.fired = false
	s.observers = s.observers[:0]
}
