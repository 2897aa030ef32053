//go:build linux || darwin

package standard

import (
	"errors"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	errs "github.com/favbox/windstream/common/errors"
	"golang.org/x/sys/unix"
)

// fdSink 直接以非阻塞方式写入套接字，内核发送缓冲区已满（EAGAIN）即为饱和。
// 不在用户态缓冲任何数据，Flush 无需动作。
type fdSink struct {
	c            net.Conn
	rc           syscall.RawConn
	closed       int32
	writeTimeout int64
}

// 连接不是套接字时返回 nil。
func newFDSink(c net.Conn) sink {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil
	}
	return &fdSink{c: c, rc: rc}
}

func (s *fdSink) TryWrite(p []byte) (int, bool) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return 0, true
	}
	if len(p) == 0 {
		return 0, false
	}
	var (
		n   int
		err error
	)
	cerr := s.rc.Write(func(fd uintptr) bool {
		for {
			n, err = unix.Write(int(fd), p)
			if err != unix.EINTR {
				return true
			}
		}
	})
	if cerr != nil || err != nil {
		// EAGAIN 为饱和，其他错误由下一次 AwaitWritable 报告
		return 0, true
	}
	return n, n < len(p)
}

// BufferedAmount 数据直接进入内核，用户态不缓冲。
func (s *fdSink) BufferedAmount() uint64 {
	return 0
}

func (s *fdSink) Flush() error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return errs.ErrConnectionClosed
	}
	return nil
}

// AwaitWritable 阻塞至套接字可写、写超时或连接出错。
func (s *fdSink) AwaitWritable() error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return errs.ErrConnectionClosed
	}
	if t := atomic.LoadInt64(&s.writeTimeout); t > 0 {
		_ = s.c.SetWriteDeadline(time.Now().Add(time.Duration(t)))
	}
	var perr error
	err := s.rc.Write(func(fd uintptr) bool {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				return false
			}
			perr = err
			return true
		}
		if n == 0 {
			// 尚不可写，交给运行时网络轮询器等待
			return false
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
			perr = errs.ErrConnectionClosed
		}
		return true
	})
	if err != nil {
		return err
	}
	return perr
}

func (s *fdSink) setWriteTimeout(t time.Duration) {
	atomic.StoreInt64(&s.writeTimeout, int64(t))
}

func (s *fdSink) close() {
	atomic.StoreInt32(&s.closed, 1)
}
