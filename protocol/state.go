package protocol

// State 表示单个响应的生命周期状态。
//
//	Idle → HeadersSent → Streaming → {Ended | Aborted}
//
// Aborted 可由任意状态经中止信号或 Close 进入；Ended 与 Aborted 均为终态。
// 未调用 WriteStatus/WriteHeader 而直接写正文时，HeadersSent 在同一次调用内经过。
type State uint8

const (
	StateIdle        State = iota // 尚未写入任何内容
	StateHeadersSent              // 已写入状态或标头，正文尚未开始
	StateStreaming                // 响应头已交给传输层，正文流式发送中
	StateEnded                    // 正文已完整交付（或已尽力交付）
	StateAborted                  // 连接中止或被强制关闭
)

var stateNames = [...]string{"Idle", "HeadersSent", "Streaming", "Ended", "Aborted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Terminal 判断是否为终态。
func (s State) Terminal() bool {
	return s == StateEnded || s == StateAborted
}

// Framing 表示正文的分帧模式，由第一次正文操作确定。
type Framing uint8

const (
	FramingUnset   Framing = iota
	FramingChunked         // Transfer-Encoding: chunked
	FramingLength          // Content-Length 声明总长度
)

func (f Framing) String() string {
	switch f {
	case FramingChunked:
		return "chunked"
	case FramingLength:
		return "length"
	}
	return "unset"
}

// Outcome 是连接对外可观察的唯一终局结果。
type Outcome uint8

const (
	OutcomeNone      Outcome = iota
	OutcomeCompleted         // 响应已结束且全部交给传输层
	OutcomeAborted           // 对端断开或传输出错
	OutcomeClosed            // 应用调用了 Close
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	case OutcomeClosed:
		return "closed"
	}
	return "none"
}
