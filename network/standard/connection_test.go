package standard

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	errs "github.com/favbox/windstream/common/errors"
	"github.com/stretchr/testify/assert"
)

func TestConnRead(t *testing.T) {
	server, client := net.Pipe()
	c := newConn(server, 0, 0)
	go func() {
		_, _ = client.Write([]byte("hello world"))
		_ = client.Close()
	}()

	b, err := c.Peek(5)
	assert.Nil(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Nil(t, c.Skip(6))
	ch, err := c.ReadByte()
	assert.Nil(t, err)
	assert.Equal(t, byte('w'), ch)

	b, err = c.Peek(4)
	assert.Nil(t, err)
	assert.Equal(t, "orld", string(b))
	assert.Nil(t, c.Skip(4))
	assert.Nil(t, c.Release())
	assert.Equal(t, 0, c.Len())

	_, err = c.Peek(1)
	assert.Equal(t, io.EOF, err)
}

func TestConnPeekPartial(t *testing.T) {
	server, client := net.Pipe()
	c := newConn(server, 0, 0)
	go func() {
		_, _ = client.Write([]byte("abc"))
		_ = client.Close()
	}()

	b, err := c.Peek(10)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "abc", string(b))
}

func TestConnGrowKeepsBorrowed(t *testing.T) {
	server, client := net.Pipe()
	c := newConn(server, 0, 0)
	data := strings.Repeat("x", defaultMallocSize) + strings.Repeat("y", defaultMallocSize)
	go func() {
		_, _ = client.Write([]byte(data))
		_ = client.Close()
	}()

	first, err := c.Peek(10)
	assert.Nil(t, err)
	assert.Equal(t, strings.Repeat("x", 10), string(first))

	all, err := c.Peek(len(data))
	assert.Nil(t, err)
	assert.Equal(t, data, string(all))
	// 扩容前借出的切片在 Release 前仍有效
	assert.Equal(t, strings.Repeat("x", 10), string(first))
	assert.Equal(t, 1, len(c.caches))

	assert.Nil(t, c.Skip(len(data)))
	assert.Nil(t, c.Release())
	assert.Equal(t, 0, len(c.caches))
}

func TestConnReadTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := newConn(server, 0, 0)
	assert.Nil(t, c.SetReadTimeout(50*time.Millisecond))

	_, err := c.Peek(1)
	assert.Equal(t, errs.ErrTimeout, err)
}

func TestConnTryWriteAndFlush(t *testing.T) {
	server, client := net.Pipe()
	c := newConn(server, 0, 0)

	data := bytes.Repeat([]byte("a"), minWatermark+10)
	n, saturated := c.TryWrite(data)
	assert.Equal(t, minWatermark, n)
	assert.True(t, saturated)
	assert.Equal(t, uint64(minWatermark), c.BufferedAmount())

	n, saturated = c.TryWrite(data[n:])
	assert.Equal(t, 0, n)
	assert.True(t, saturated)

	got := make(chan []byte)
	go func() {
		b, _ := io.ReadAll(client)
		got <- b
	}()

	assert.Nil(t, c.AwaitWritable())
	assert.Equal(t, uint64(0), c.BufferedAmount())
	n, saturated = c.TryWrite(data[minWatermark:])
	assert.Equal(t, 10, n)
	assert.False(t, saturated)
	assert.Nil(t, c.Flush())
	assert.Nil(t, c.Close())

	assert.Equal(t, data, <-got)

	// 关闭后不再接收
	n, saturated = c.TryWrite(data)
	assert.Equal(t, 0, n)
	assert.True(t, saturated)
	assert.Equal(t, errs.ErrConnectionClosed, c.Flush())
}

func TestConnTryWriteDoesNotWaitForFlush(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := newConn(server, 0, 0)

	n, _ := c.TryWrite([]byte("hello"))
	assert.Equal(t, 5, n)

	// 对端不读取，Flush 阻塞在管道写入上
	flushed := make(chan error, 1)
	go func() { flushed <- c.Flush() }()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	n, saturated := c.TryWrite([]byte("more"))
	assert.Equal(t, 0, n)
	assert.True(t, saturated)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// 关闭连接唤醒阻塞中的 Flush
	assert.Nil(t, c.Close())
	select {
	case err := <-flushed:
		assert.NotNil(t, err)
	case <-time.After(time.Second):
		t.Fatal("Flush 未在关闭后返回")
	}
}

func TestConnHandleSpecificError(t *testing.T) {
	c := &Conn{}
	assert.True(t, c.HandleSpecificError(errs.ErrConnectionClosed, "127.0.0.1"))
	assert.False(t, c.HandleSpecificError(io.ErrUnexpectedEOF, "127.0.0.1"))
}
