package netpoll

import (
	"bytes"
	"testing"

	"github.com/cloudwego/netpoll"
	"github.com/stretchr/testify/assert"
)

func TestSinkWatermark(t *testing.T) {
	var out bytes.Buffer
	s := NewSink(netpoll.NewWriter(&out), 1)
	assert.Equal(t, minWatermark, s.Watermark())

	data := bytes.Repeat([]byte("a"), minWatermark+100)
	n, saturated := s.TryWrite(data)
	assert.Equal(t, minWatermark, n)
	assert.True(t, saturated)
	assert.Equal(t, uint64(minWatermark), s.BufferedAmount())

	// 饱和后不再接收
	n, saturated = s.TryWrite(data[n:])
	assert.Equal(t, 0, n)
	assert.True(t, saturated)
	assert.Equal(t, 0, out.Len())

	assert.Nil(t, s.AwaitWritable())
	assert.Equal(t, uint64(0), s.BufferedAmount())
	assert.Equal(t, minWatermark, out.Len())

	n, saturated = s.TryWrite(data[minWatermark:])
	assert.Equal(t, 100, n)
	assert.False(t, saturated)
	assert.Nil(t, s.Flush())
	assert.Equal(t, data, out.Bytes())
}

func TestSinkEmptyWrite(t *testing.T) {
	var out bytes.Buffer
	s := NewSink(netpoll.NewWriter(&out), 8*1024)
	n, saturated := s.TryWrite(nil)
	assert.Equal(t, 0, n)
	assert.False(t, saturated)
}

func TestSinkBusyDuringFlush(t *testing.T) {
	var out bytes.Buffer
	s := NewSink(netpoll.NewWriter(&out), 8*1024)

	// 模拟驱动协程正在 Flush
	s.mu.Lock()
	n, saturated := s.TryWrite([]byte("abc"))
	s.mu.Unlock()
	assert.Equal(t, 0, n)
	assert.True(t, saturated)

	n, saturated = s.TryWrite([]byte("abc"))
	assert.Equal(t, 3, n)
	assert.False(t, saturated)
	assert.Nil(t, s.Flush())
	assert.Equal(t, "abc", out.String())
}
