package resp

import (
	"github.com/favbox/windstream/common/json"
)

// Snapshot 是响应状态的诊断视图。
type Snapshot struct {
	State       string `json:"state"`
	Framing     string `json:"framing"`
	WriteOffset uint64 `json:"write_offset"`
	TotalLength uint64 `json:"total_length,omitempty"`
	Backlog     int    `json:"backlog"`
	Buffered    uint64 `json:"buffered"`
	Finished    bool   `json:"finished"`
	KeepAlive   bool   `json:"keep_alive"`
}

// String 返回 JSON 格式的快照。
func (s Snapshot) String() string {
	out, err := json.MarshalToString(s)
	if err != nil {
		return err.Error()
	}
	return out
}

// Snapshot 返回当前状态的诊断快照。
func (r *Response) Snapshot() Snapshot {
	return Snapshot{
		State:       r.state.String(),
		Framing:     r.framing.String(),
		WriteOffset: r.writeOffset,
		TotalLength: r.totalLength,
		Backlog:     r.backlog.size,
		Buffered:    r.sink.BufferedAmount(),
		Finished:    r.finished,
		KeepAlive:   r.KeepAlive(),
	}
}
