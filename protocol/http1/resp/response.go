// Package resp 实现 HTTP/1.1 响应的非阻塞流式写出。
//
// Response 的所有方法须在连接所属的串行执行上下文中调用，自身不加锁。
package resp

import (
	"github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/hlog"
	"github.com/favbox/windstream/internal/bytestr"
	"github.com/favbox/windstream/internal/nocopy"
	"github.com/favbox/windstream/network"
	"github.com/favbox/windstream/protocol"
	"github.com/favbox/windstream/protocol/consts"
	"github.com/favbox/windstream/protocol/http1/ext"
	"github.com/valyala/bytebufferpool"
)

const defaultMaxWritableSpins = 1024

// Config 是响应的可选配置。
type Config struct {
	ServerName       []byte // 为空时不追加 Server 标头
	NoDefaultDate    bool   // 不追加 Date 标头
	ConnectionClose  bool   // 追加 "Connection: close" 并在结束后关闭连接
	MaxWritableSpins int    // 单次可写通知内可写回调的最大连续调用次数，默认 1024
}

// Response 是单个请求的响应写出器。
//
// 状态流转：Idle → HeadersSent → Streaming → {Ended | Aborted}。
// 进入终态后，除 Close 外的所有操作均返回 errors.ErrInvalidState。
type Response struct {
	noCopy nocopy.NoCopy //lint:ignore U1000 until noCopy is used

	header  protocol.ResponseHeader
	state   protocol.State
	framing protocol.Framing

	headersWritten bool
	writeOffset    uint64
	totalLength    uint64
	wantWritable   bool
	endPending     bool // 定长正文已写满，等待滞留的响应头交出
	backlog        backlog

	sink       network.ByteSink
	callbacks  *protocol.Registry
	maxSpins   int
	serverName []byte
	closeAfter bool

	finished bool
	closed   bool
	onFinish func(protocol.Outcome)
	closer   func()
}

// NewResponse 创建写往 sink 的响应，回调存放于 callbacks。
func NewResponse(sink network.ByteSink, callbacks *protocol.Registry, cfg Config) *Response {
	r := &Response{
		sink:       sink,
		callbacks:  callbacks,
		maxSpins:   cfg.MaxWritableSpins,
		serverName: cfg.ServerName,
	}
	if r.maxSpins <= 0 {
		r.maxSpins = defaultMaxWritableSpins
	}
	if r.callbacks == nil {
		r.callbacks = &protocol.Registry{}
	}
	r.header.SetNoDefaultDate(cfg.NoDefaultDate)
	if cfg.ConnectionClose {
		r.header.SetConnectionClose()
	}
	return r
}

// SetFinishHook 设置终局回调，响应进入唯一终局结果时调用一次。
func (r *Response) SetFinishHook(f func(protocol.Outcome)) {
	r.onFinish = f
}

// SetCloser 设置 Close 时释放底层连接的函数。
func (r *Response) SetCloser(f func()) {
	r.closer = f
}

// WriteStatus 设置状态行，如 "200 OK"。仅允许在响应头发出之前调用。
func (r *Response) WriteStatus(status string) error {
	if err := r.checkHead("WriteStatus"); err != nil {
		return err
	}
	r.header.SetStatus(status)
	r.state = protocol.StateHeadersSent
	return nil
}

// WriteStatusCode 以状态码设置状态行，原因短语取自标准文本。
func (r *Response) WriteStatusCode(code int) error {
	return r.WriteStatus(consts.StatusLine(code))
}

// WriteHeader 追加一个标头。仅允许在正文开始之前调用。
//
// Content-Length 与 Transfer-Encoding 由分帧模式决定，手动设置会被忽略。
func (r *Response) WriteHeader(name, value string) error {
	if err := r.checkHead("WriteHeader"); err != nil {
		return err
	}
	if !r.header.Add(name, value) {
		hlog.SystemLogger().Debugf("忽略由引擎管理的标头: %s", name)
	}
	r.state = protocol.StateHeadersSent
	return nil
}

func (r *Response) checkHead(op string) error {
	if r.state.Terminal() {
		return errors.NewInvalidState(op, "响应已处于终态 "+r.state.String())
	}
	if r.headersWritten {
		return errors.NewInvalidState(op, "响应头已发出")
	}
	return nil
}

// Write 以分块模式写出一段正文。
//
// 返回 true 表示传输层已立即接收全部数据且未饱和；
// 返回 false 表示有数据滞留或传输层已饱和，须等待 OnWritable 回调后再写。
// 等待期间再次调用返回 errors.ErrBackpressure，不产生任何副作用。
func (r *Response) Write(chunk []byte) (bool, error) {
	if r.state.Terminal() {
		return false, errors.NewInvalidState("Write", "响应已处于终态 "+r.state.String())
	}
	if r.framing == protocol.FramingLength {
		return false, errors.ErrFramingMismatch
	}
	if r.pending() {
		return false, errors.New(errors.ErrBackpressure, errors.ErrorTypeBackpressure, "Write")
	}

	r.writeHead(protocol.FramingChunked, 0)
	if len(chunk) > 0 {
		r.writeChunk(chunk)
	}
	return !r.pending(), nil
}

// TryEnd 以定长模式写出一段正文，total 为正文总长度。
//
// 首次调用时发送 Content-Length: total。chunk 未被完整接收时，未接收部分不会保留，
// 调用方须在 OnWritable 回调中从 WriteOffset 处续写。
// 写满 total 后响应进入 Ended。
//
// 返回 true 当且仅当调用后 WriteOffset() == total 且传输层接收了全部数据；
// 其余情况返回 false，此时须以 WriteOffset 判断进度。
func (r *Response) TryEnd(chunk []byte, total uint64) (bool, error) {
	if r.state.Terminal() {
		return false, errors.NewInvalidState("TryEnd", "响应已处于终态 "+r.state.String())
	}
	if r.framing == protocol.FramingChunked {
		return false, errors.ErrFramingMismatch
	}
	if r.framing == protocol.FramingLength && total != r.totalLength {
		return false, errors.ErrBodyOverflow
	}
	if r.writeOffset+uint64(len(chunk)) > total {
		return false, errors.ErrBodyOverflow
	}
	if r.pending() {
		return false, nil
	}

	if r.framing == protocol.FramingUnset {
		r.totalLength = total
	}
	r.writeHead(protocol.FramingLength, total)
	r.emit(chunk, true, false)

	if r.writeOffset < total {
		return false, nil
	}
	if !r.backlog.empty() {
		// 正文已写满但响应头仍有滞留，交出后才进入 Ended
		r.endPending = true
		return false, nil
	}
	r.state = protocol.StateEnded
	r.finish(protocol.OutcomeCompleted)
	return true, nil
}

// End 写出最后一段正文并无条件进入 Ended，不受背压影响。
//
// 未开始正文时以 Content-Length: len(chunk) 单次发送；
// 分块模式下追加结束块；定长模式下不足声明长度时，在写出后关闭连接。
func (r *Response) End(chunk []byte) error {
	if r.state.Terminal() {
		return errors.NewInvalidState("End", "响应已处于终态 "+r.state.String())
	}

	switch r.framing {
	case protocol.FramingUnset:
		r.totalLength = uint64(len(chunk))
		r.writeHead(protocol.FramingLength, r.totalLength)
		r.emit(chunk, true, true)
	case protocol.FramingChunked:
		if len(chunk) > 0 {
			r.writeChunk(chunk)
		}
		r.emit(bytestr.StrLastChunk, false, true)
	case protocol.FramingLength:
		if r.writeOffset+uint64(r.backlog.bodyLen)+uint64(len(chunk)) > r.totalLength {
			return errors.ErrBodyOverflow
		}
		r.emit(chunk, true, true)
		if sent := r.writeOffset + uint64(r.backlog.bodyLen); sent < r.totalLength {
			hlog.SystemLogger().Warnf("正文不足声明长度，结束后关闭连接: content-length=%d, sent=%d", r.totalLength, sent)
			r.closeAfter = true
		}
	}

	r.state = protocol.StateEnded
	if r.backlog.empty() {
		r.finish(protocol.OutcomeCompleted)
	}
	return nil
}

// WriteOffset 返回已交给传输层的正文字节数，单调不减。
func (r *Response) WriteOffset() uint64 {
	return r.writeOffset
}

// OnWritable 注册可写回调，替换并释放之前注册的回调。
//
// 传输层由饱和转为可写时调用，参数为应续写的正文偏移；返回 true 则立即再次调用，
// 直到再次饱和、回调返回 false 或响应结束。
func (r *Response) OnWritable(fn protocol.WritableFunc) error {
	if r.state.Terminal() {
		return errors.NewInvalidState("OnWritable", "响应已处于终态 "+r.state.String())
	}
	r.callbacks.Writable.Store(fn)
	return nil
}

// OnAborted 注册中止回调，替换并释放之前注册的回调。至多调用一次，且不会在 Ended 之后调用。
func (r *Response) OnAborted(fn protocol.AbortedFunc) error {
	if r.state.Terminal() {
		return errors.NewInvalidState("OnAborted", "响应已处于终态 "+r.state.String())
	}
	r.callbacks.Aborted.Store(fn)
	return nil
}

// Close 强制中止响应并释放底层连接，可重复调用。已 Ended 的响应保持 Ended。
func (r *Response) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.state != protocol.StateEnded {
		r.state = protocol.StateAborted
	}
	r.backlog.release()
	r.finish(protocol.OutcomeClosed)
	if r.closer != nil {
		r.closer()
	}
	return nil
}

// Abort 由连接在中止信号触发时调用：进入 Aborted 并调用中止回调，之后不再调用任何回调。
func (r *Response) Abort() {
	if r.finished {
		return
	}
	r.backlog.release()
	if r.state == protocol.StateEnded {
		r.finish(protocol.OutcomeAborted)
		return
	}
	r.state = protocol.StateAborted
	fn, ok := r.callbacks.Aborted.Take()
	// 先确定终局结果，回调中调用 Close 不再改变结果
	r.finish(protocol.OutcomeAborted)
	if ok && fn != nil {
		if err := protocol.Invoke(fn); err != nil {
			logPanic("中止回调", err)
		}
	}
}

// NotifyWritable 由传输驱动在传输层恢复可写时调用。
//
// 先写出滞留字节；若响应已 Ended 且全部交出，则完成响应；否则调用可写回调。
func (r *Response) NotifyWritable() {
	if r.finished {
		r.wantWritable = false
		return
	}
	waiting := r.wantWritable
	r.wantWritable = false

	if !r.backlog.empty() {
		accepted, drained, saturated := r.backlog.drain(r.sink)
		r.writeOffset += accepted
		if saturated {
			r.wantWritable = true
		}
		if !drained {
			return
		}
	}
	if r.endPending {
		r.endPending = false
		r.state = protocol.StateEnded
	}
	if r.state == protocol.StateEnded {
		r.finish(protocol.OutcomeCompleted)
		return
	}
	if !waiting || r.wantWritable {
		return
	}

	for i := 0; i < r.maxSpins; i++ {
		// 每轮重新读取槽位，回调中替换的旧回调不再被调用
		fn, ok := r.callbacks.Writable.Load()
		if !ok || fn == nil {
			return
		}
		var more bool
		offset := r.writeOffset
		if err := protocol.Invoke(func() { more = fn(offset) }); err != nil {
			r.callbackPanic("可写回调", err)
			return
		}
		if !more || r.finished || r.state.Terminal() || r.wantWritable {
			return
		}
	}
}

// NeedsWritable 报告响应是否在等待传输层可写。
func (r *Response) NeedsWritable() bool {
	return r.wantWritable && !r.finished
}

// State 返回当前状态。
func (r *Response) State() protocol.State {
	return r.state
}

// Framing 返回分帧模式。
func (r *Response) Framing() protocol.Framing {
	return r.framing
}

// Finished 报告响应是否已产生终局结果。
func (r *Response) Finished() bool {
	return r.finished
}

// KeepAlive 报告响应结束后连接能否继续复用。
func (r *Response) KeepAlive() bool {
	return !r.closeAfter && !r.header.ConnectionClose()
}

// Header 返回响应头，仅在响应头发出之前修改有效。
func (r *Response) Header() *protocol.ResponseHeader {
	return &r.header
}

// 是否有滞留字节或在等待可写。
func (r *Response) pending() bool {
	return r.wantWritable || !r.backlog.empty()
}

// 首次正文操作时确定分帧模式并发出响应头。
func (r *Response) writeHead(framing protocol.Framing, length uint64) {
	if r.headersWritten {
		return
	}
	r.framing = framing
	r.headersWritten = true
	if r.state == protocol.StateIdle {
		// 未显式设置状态或标头时隐式经过 HeadersSent
		r.state = protocol.StateHeadersSent
	}
	r.state = protocol.StateStreaming

	buf := bytebufferpool.Get()
	buf.B = r.header.AppendBytes(buf.B, framing, length, r.serverName)
	r.emit(buf.B, false, true)
	bytebufferpool.Put(buf)
}

// 写出一个完整的数据块：块大小行、数据与 CRLF。
func (r *Response) writeChunk(chunk []byte) {
	var head [24]byte
	r.emit(ext.AppendChunkHead(head[:0], len(chunk)), false, true)
	r.emit(chunk, true, true)
	r.emit(bytestr.StrCRLF, false, true)
}

// emit 将 b 交给传输层，返回被接收的字节数。
//
// 已有滞留字节或在等待可写时不再尝试写入，以保证顺序，且等待期间不触碰传输层；
// retain 为 true 时未接收部分进入滞留队列。
// body 为 true 时接收的字节计入正文偏移。
func (r *Response) emit(b []byte, body, retain bool) int {
	if len(b) == 0 {
		return 0
	}
	if r.wantWritable || !r.backlog.empty() {
		if retain {
			r.backlog.push(b, body)
		}
		return 0
	}
	n, saturated := r.sink.TryWrite(b)
	if body {
		r.writeOffset += uint64(n)
	}
	if n < len(b) {
		if retain {
			r.backlog.push(b[n:], body)
		}
		saturated = true
	}
	if saturated {
		r.wantWritable = true
	}
	return n
}

func (r *Response) callbackPanic(name string, err error) {
	logPanic(name, err)
	_ = r.Close()
}

func logPanic(name string, err error) {
	if pe, ok := err.(*protocol.PanicError); ok {
		hlog.SystemLogger().Errorf("%s panic: %v\n%s", name, pe.Value, pe.Stack)
		return
	}
	hlog.SystemLogger().Errorf("%s出错: %v", name, err)
}

func (r *Response) releaseCallbacks() {
	r.callbacks.Writable.Release()
	r.callbacks.Aborted.Release()
}

func (r *Response) finish(o protocol.Outcome) {
	if r.finished {
		return
	}
	r.finished = true
	r.wantWritable = false
	r.releaseCallbacks()
	if r.onFinish != nil {
		r.onFinish(o)
	}
}
