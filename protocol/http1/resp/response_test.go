package resp

import (
	"strings"
	"testing"

	"github.com/favbox/windstream/common/errors"
	"github.com/favbox/windstream/common/mock"
	"github.com/favbox/windstream/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	outcomes []protocol.Outcome
	closes   int
}

func newTestResponse(limits ...int) (*Response, *mock.Sink, *recorder) {
	sink := mock.NewSink(limits...)
	rec := &recorder{}
	r := NewResponse(sink, &protocol.Registry{}, Config{NoDefaultDate: true})
	r.SetFinishHook(func(o protocol.Outcome) { rec.outcomes = append(rec.outcomes, o) })
	r.SetCloser(func() { rec.closes++ })
	return r, sink, rec
}

const chunkedHead = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nTransfer-Encoding: chunked\r\n\r\n"

func TestResponseUnknownLength(t *testing.T) {
	r, sink, rec := newTestResponse()

	assert.Equal(t, protocol.StateIdle, r.State())
	assert.Nil(t, r.WriteStatus("200 OK"))
	assert.Equal(t, protocol.StateHeadersSent, r.State())
	assert.Nil(t, r.WriteHeader("Content-Type", "text/plain"))

	ok, err := r.Write([]byte("hello"))
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, protocol.StateStreaming, r.State())
	assert.Equal(t, protocol.FramingChunked, r.Framing())

	assert.Nil(t, r.End([]byte("world")))
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, uint64(10), r.WriteOffset())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, chunkedHead+"5\r\nhello\r\n5\r\nworld\r\n0\r\n\r\n", sink.String())
	assert.True(t, r.KeepAlive())
}

func TestResponseTryEndUnderBackpressure(t *testing.T) {
	// 响应头不限，正文首次只接收 40 字节
	r, sink, rec := newTestResponse(mock.Unlimited, 40)
	body := mock.CreateFixedBody(100)

	var offsets []uint64
	var done bool
	require.Nil(t, r.OnWritable(func(offset uint64) bool {
		offsets = append(offsets, offset)
		ok, err := r.TryEnd(body[offset:], 100)
		assert.Nil(t, err)
		done = ok
		return false
	}))

	ok, err := r.TryEnd(body, 100)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(40), r.WriteOffset())
	assert.Equal(t, protocol.StateStreaming, r.State())
	assert.True(t, r.NeedsWritable())

	// 等待期间重试不产生副作用
	calls := sink.Calls()
	ok, err = r.TryEnd(body[40:], 100)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, calls, sink.Calls())

	r.NotifyWritable()
	assert.Equal(t, []uint64{40}, offsets)
	assert.True(t, done)
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, uint64(100), r.WriteOffset())
	assert.False(t, r.NeedsWritable())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n"+string(body), sink.String())
}

func TestResponseTryEndReturnsTrueOnlyWhenComplete(t *testing.T) {
	r, _, _ := newTestResponse()

	ok, err := r.TryEnd([]byte("abc"), 6)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, protocol.StateStreaming, r.State())

	ok, err = r.TryEnd([]byte("def"), 6)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), r.WriteOffset())
	assert.Equal(t, protocol.StateEnded, r.State())
}

func TestResponseWriteOffsetMonotonic(t *testing.T) {
	// 响应头、块大小行不限，正文只接收 3 字节
	r, sink, _ := newTestResponse(mock.Unlimited, mock.Unlimited, 3)

	var seen []uint64
	track := func() {
		if n := len(seen); n > 0 {
			assert.GreaterOrEqual(t, r.WriteOffset(), seen[n-1])
		}
		seen = append(seen, r.WriteOffset())
	}

	ok, err := r.Write([]byte("hello"))
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(3), r.WriteOffset())
	track()

	ok, err = r.Write([]byte("x"))
	assert.False(t, ok)
	assert.True(t, errors.IsBackpressure(err))
	assert.Equal(t, uint64(3), r.WriteOffset())
	track()

	r.NotifyWritable()
	assert.Equal(t, uint64(5), r.WriteOffset())
	assert.False(t, r.NeedsWritable())
	track()

	ok, err = r.Write([]byte("abc"))
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(8), r.WriteOffset())
	track()

	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n3\r\nabc\r\n", sink.String())
}

func TestResponseTerminalRejects(t *testing.T) {
	r, sink, _ := newTestResponse()
	assert.Nil(t, r.End([]byte("bye")))
	calls := sink.Calls()

	_, err := r.Write([]byte("x"))
	assert.True(t, errors.IsInvalidState(err))
	_, err = r.TryEnd([]byte("x"), 4)
	assert.True(t, errors.IsInvalidState(err))
	assert.True(t, errors.IsInvalidState(r.End(nil)))
	assert.True(t, errors.IsInvalidState(r.WriteHeader("a", "b")))
	assert.True(t, errors.IsInvalidState(r.WriteStatus("404 Not Found")))
	assert.True(t, errors.IsInvalidState(r.OnWritable(func(uint64) bool { return false })))
	assert.True(t, errors.IsInvalidState(r.OnAborted(func() {})))

	assert.Equal(t, calls, sink.Calls())
	assert.Equal(t, uint64(3), r.WriteOffset())
}

func TestResponseHeadLocksAfterBody(t *testing.T) {
	r, _, _ := newTestResponse()
	_, err := r.Write([]byte("a"))
	assert.Nil(t, err)
	assert.True(t, errors.IsInvalidState(r.WriteHeader("X-Late", "1")))
	assert.True(t, errors.IsInvalidState(r.WriteStatus("500 Internal Server Error")))
}

func TestResponseReplaceWritable(t *testing.T) {
	r, sink, _ := newTestResponse(mock.Unlimited, 0)

	var first, second int
	assert.Nil(t, r.OnWritable(func(uint64) bool { first++; return false }))
	assert.Nil(t, r.OnWritable(func(uint64) bool { second++; return false }))

	ok, err := r.Write([]byte("a"))
	assert.Nil(t, err)
	assert.False(t, ok)

	r.NotifyWritable()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	// 回调内替换：被替换的回调不再被调用
	sink.Block()
	_, err = r.Write([]byte("b"))
	assert.Nil(t, err)
	sink.Unblock()

	var third int
	assert.Nil(t, r.OnWritable(func(uint64) bool {
		second++
		_ = r.OnWritable(func(uint64) bool { third++; return false })
		return true
	}))
	r.NotifyWritable()
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, third)
}

func TestResponseWritableSpinsBounded(t *testing.T) {
	sink := mock.NewSink(mock.Unlimited, 0)
	r := NewResponse(sink, nil, Config{NoDefaultDate: true, MaxWritableSpins: 3})

	var calls int
	assert.Nil(t, r.OnWritable(func(uint64) bool { calls++; return true }))
	_, _ = r.Write([]byte("a"))
	r.NotifyWritable()
	assert.Equal(t, 3, calls)

	// 未在等待可写时不调用
	r.NotifyWritable()
	assert.Equal(t, 3, calls)
}

func TestResponseWritableLoopStopsOnBackpressure(t *testing.T) {
	r, sink, _ := newTestResponse(mock.Unlimited, 0)

	var calls int
	assert.Nil(t, r.OnWritable(func(uint64) bool {
		calls++
		ok, err := r.Write([]byte("more"))
		assert.Nil(t, err)
		return ok
	}))
	_, _ = r.Write([]byte("a"))

	// 第一轮写入被完整接收，第二轮再次饱和
	sink.Script(mock.Unlimited, mock.Unlimited, mock.Unlimited, mock.Unlimited, mock.Unlimited, mock.Unlimited, 0)
	r.NotifyWritable()
	assert.Equal(t, 2, calls)
	assert.True(t, r.NeedsWritable())
}

func TestResponseAbort(t *testing.T) {
	r, _, rec := newTestResponse()
	_, err := r.Write([]byte("partial"))
	assert.Nil(t, err)

	var aborted, writable int
	assert.Nil(t, r.OnAborted(func() {
		aborted++
		_, err := r.Write([]byte("x"))
		assert.True(t, errors.IsInvalidState(err))
	}))
	assert.Nil(t, r.OnWritable(func(uint64) bool { writable++; return false }))

	r.Abort()
	r.Abort()
	r.NotifyWritable()

	assert.Equal(t, 1, aborted)
	assert.Equal(t, 0, writable)
	assert.Equal(t, protocol.StateAborted, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeAborted}, rec.outcomes)

	_, err = r.Write([]byte("x"))
	assert.True(t, errors.IsInvalidState(err))
}

func TestResponseAbortAfterEnd(t *testing.T) {
	r, _, rec := newTestResponse()

	var aborted int
	assert.Nil(t, r.OnAborted(func() { aborted++ }))
	ok, err := r.TryEnd([]byte("all"), 3)
	assert.Nil(t, err)
	assert.True(t, ok)

	r.Abort()
	assert.Equal(t, 0, aborted)
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
}

func TestResponseAbortWhileFlushingEnd(t *testing.T) {
	r, sink, rec := newTestResponse()
	sink.Block()

	var aborted int
	assert.Nil(t, r.OnAborted(func() { aborted++ }))
	assert.Nil(t, r.End([]byte("never flushed")))
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Empty(t, rec.outcomes)

	r.Abort()
	assert.Equal(t, 0, aborted)
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeAborted}, rec.outcomes)
}

func TestResponseCloseInsideAbortedCallback(t *testing.T) {
	r, _, rec := newTestResponse()
	_, err := r.Write([]byte("a"))
	assert.Nil(t, err)

	assert.Nil(t, r.OnAborted(func() { assert.Nil(t, r.Close()) }))
	r.Abort()

	assert.Equal(t, protocol.StateAborted, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeAborted}, rec.outcomes)
	assert.Equal(t, 1, rec.closes)
}

func TestResponseTryEndWithHeadBacklogged(t *testing.T) {
	// 响应头首次只接收 3 字节
	r, sink, rec := newTestResponse(3)

	ok, err := r.TryEnd(nil, 0)
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.Equal(t, protocol.StateStreaming, r.State())
	assert.Equal(t, uint64(0), r.WriteOffset())
	assert.True(t, r.NeedsWritable())
	assert.Empty(t, rec.outcomes)

	ok, err = r.TryEnd(nil, 0)
	assert.Nil(t, err)
	assert.False(t, ok)

	r.NotifyWritable()
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", sink.String())
}

func TestResponseImplicitHeadersSent(t *testing.T) {
	r, _, _ := newTestResponse()
	assert.Equal(t, protocol.StateIdle, r.State())
	ok, err := r.Write([]byte("x"))
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, protocol.StateStreaming, r.State())
	assert.True(t, errors.IsInvalidState(r.WriteHeader("X-Late", "1")))
}

// 全部接收但可按需报告饱和的接收端。
type saturatingSink struct {
	out      []byte
	calls    int
	saturate bool
}

func (s *saturatingSink) TryWrite(p []byte) (int, bool) {
	s.calls++
	s.out = append(s.out, p...)
	return len(p), s.saturate
}

func (s *saturatingSink) BufferedAmount() uint64 {
	return 0
}

func TestResponseNoSinkWritesWhileAwaitingWritable(t *testing.T) {
	sink := &saturatingSink{saturate: true}
	var outcomes []protocol.Outcome
	r := NewResponse(sink, nil, Config{NoDefaultDate: true})
	r.SetFinishHook(func(o protocol.Outcome) { outcomes = append(outcomes, o) })

	ok, err := r.Write([]byte("a"))
	assert.Nil(t, err)
	assert.False(t, ok)
	assert.True(t, r.NeedsWritable())
	assert.Equal(t, 1, sink.calls)

	// 等待可写期间 End 只进入滞留队列
	assert.Nil(t, r.End([]byte("c")))
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Empty(t, outcomes)

	sink.saturate = false
	r.NotifyWritable()
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, outcomes)
	assert.Equal(t, uint64(2), r.WriteOffset())
	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n1\r\na\r\n1\r\nc\r\n0\r\n\r\n", string(sink.out))
}

func TestResponseClose(t *testing.T) {
	r, _, rec := newTestResponse()
	var aborted int
	assert.Nil(t, r.OnAborted(func() { aborted++ }))

	assert.Nil(t, r.Close())
	assert.Nil(t, r.Close())
	r.Abort()

	assert.Equal(t, 0, aborted)
	assert.Equal(t, 1, rec.closes)
	assert.Equal(t, protocol.StateAborted, r.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeClosed}, rec.outcomes)

	_, err := r.Write([]byte("x"))
	assert.True(t, errors.IsInvalidState(err))
}

func TestResponseCloseAfterEndKeepsEnded(t *testing.T) {
	r, _, rec := newTestResponse()
	assert.Nil(t, r.End(nil))
	assert.Nil(t, r.Close())
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, 1, rec.closes)
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
}

func TestResponseFramingErrors(t *testing.T) {
	t.Run("TryEndAfterWrite", func(t *testing.T) {
		r, _, _ := newTestResponse()
		_, _ = r.Write([]byte("a"))
		_, err := r.TryEnd([]byte("b"), 2)
		assert.ErrorIs(t, err, errors.ErrFramingMismatch)
		assert.True(t, errors.IsInvalidState(err))
	})

	t.Run("WriteAfterTryEnd", func(t *testing.T) {
		r, _, _ := newTestResponse()
		_, _ = r.TryEnd([]byte("a"), 2)
		_, err := r.Write([]byte("b"))
		assert.ErrorIs(t, err, errors.ErrFramingMismatch)
	})

	t.Run("TotalChanged", func(t *testing.T) {
		r, _, _ := newTestResponse()
		_, _ = r.TryEnd([]byte("a"), 2)
		_, err := r.TryEnd([]byte("b"), 3)
		assert.ErrorIs(t, err, errors.ErrBodyOverflow)
		assert.Equal(t, uint64(1), r.WriteOffset())
	})

	t.Run("PastTotal", func(t *testing.T) {
		r, sink, _ := newTestResponse()
		_, err := r.TryEnd([]byte("abc"), 2)
		assert.ErrorIs(t, err, errors.ErrBodyOverflow)
		assert.True(t, errors.IsInvalidState(err))
		assert.Equal(t, 0, sink.Calls())
		assert.Equal(t, protocol.StateIdle, r.State())
	})

	t.Run("EndPastTotal", func(t *testing.T) {
		r, _, _ := newTestResponse()
		_, _ = r.TryEnd([]byte("a"), 2)
		assert.ErrorIs(t, r.End([]byte("bc")), errors.ErrBodyOverflow)
		assert.Equal(t, protocol.StateStreaming, r.State())
	})
}

func TestResponseEndSingleShot(t *testing.T) {
	r, sink, rec := newTestResponse()
	assert.Nil(t, r.WriteStatusCode(404))
	assert.Nil(t, r.WriteHeader("Content-Length", "999"))
	assert.Nil(t, r.End([]byte("not found")))

	assert.Equal(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 9\r\n\r\nnot found", sink.String())
	assert.Equal(t, protocol.FramingLength, r.Framing())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
}

func TestResponseEndShortOfTotal(t *testing.T) {
	r, _, rec := newTestResponse()
	_, _ = r.TryEnd([]byte("abc"), 10)
	assert.True(t, r.KeepAlive())

	assert.Nil(t, r.End([]byte("de")))
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Equal(t, uint64(5), r.WriteOffset())
	assert.False(t, r.KeepAlive())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
}

func TestResponseEndUnderBackpressure(t *testing.T) {
	r, sink, rec := newTestResponse()
	ok, err := r.Write([]byte("hello"))
	assert.Nil(t, err)
	assert.True(t, ok)

	sink.Block()
	ok, err = r.Write([]byte("abc"))
	assert.Nil(t, err)
	assert.False(t, ok)

	assert.Nil(t, r.End([]byte("!")))
	assert.Equal(t, protocol.StateEnded, r.State())
	assert.Empty(t, rec.outcomes)
	assert.Equal(t, uint64(5), r.WriteOffset())

	// 仍被阻塞时只部分写出
	r.NotifyWritable()
	assert.True(t, r.NeedsWritable())
	assert.Empty(t, rec.outcomes)

	sink.Unblock()
	r.NotifyWritable()
	assert.Equal(t, uint64(9), r.WriteOffset())
	assert.False(t, r.NeedsWritable())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeCompleted}, rec.outcomes)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n3\r\nabc\r\n1\r\n!\r\n0\r\n\r\n", sink.String())
}

func TestResponseEmptyWriteDoesNotTerminate(t *testing.T) {
	r, sink, _ := newTestResponse()
	ok, err := r.Write(nil)
	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n", sink.String())
	assert.Equal(t, protocol.StateStreaming, r.State())
}

func TestResponseWritablePanicCloses(t *testing.T) {
	r, _, rec := newTestResponse(mock.Unlimited, 0)
	assert.Nil(t, r.OnWritable(func(uint64) bool { panic("boom") }))
	_, _ = r.Write([]byte("a"))

	assert.NotPanics(t, r.NotifyWritable)
	assert.Equal(t, protocol.StateAborted, r.State())
	assert.Equal(t, 1, rec.closes)
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeClosed}, rec.outcomes)
}

func TestResponseDefaultHeaders(t *testing.T) {
	sink := mock.NewSink()
	r := NewResponse(sink, nil, Config{ServerName: []byte("windstream"), ConnectionClose: true})
	assert.Nil(t, r.End(nil))

	out := sink.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\nConnection: close\r\nServer: windstream\r\nDate: "))
	assert.True(t, strings.HasSuffix(out, "Content-Length: 0\r\n\r\n"))
	assert.False(t, r.KeepAlive())
}

func TestResponseSnapshot(t *testing.T) {
	r, _, _ := newTestResponse(mock.Unlimited, 4)
	_, _ = r.TryEnd([]byte("0123456789"), 10)

	s := r.Snapshot()
	assert.Equal(t, "Streaming", s.State)
	assert.Equal(t, "length", s.Framing)
	assert.Equal(t, uint64(4), s.WriteOffset)
	assert.Equal(t, uint64(10), s.TotalLength)
	assert.Contains(t, s.String(), `"state":"Streaming"`)
	assert.Contains(t, s.String(), `"write_offset":4`)
}
