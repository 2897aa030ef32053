package hlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
)

type defaultLogger struct {
	std   *log.Logger
	level int64 // Level，原子读写
	depth int
}

func (l *defaultLogger) SetOutput(w io.Writer) {
	l.std.SetOutput(w)
}

func (l *defaultLogger) SetLevel(lv Level) {
	atomic.StoreInt64(&l.level, int64(lv))
}

func (l *defaultLogger) Trace(v ...any) { l.logf(LevelTrace, nil, v...) }
func (l *defaultLogger) Debug(v ...any) { l.logf(LevelDebug, nil, v...) }
func (l *defaultLogger) Info(v ...any)  { l.logf(LevelInfo, nil, v...) }
func (l *defaultLogger) Warn(v ...any)  { l.logf(LevelWarn, nil, v...) }
func (l *defaultLogger) Error(v ...any) { l.logf(LevelError, nil, v...) }

func (l *defaultLogger) Tracef(format string, v ...any) { l.logf(LevelTrace, &format, v...) }
func (l *defaultLogger) Debugf(format string, v ...any) { l.logf(LevelDebug, &format, v...) }
func (l *defaultLogger) Infof(format string, v ...any)  { l.logf(LevelInfo, &format, v...) }
func (l *defaultLogger) Warnf(format string, v ...any)  { l.logf(LevelWarn, &format, v...) }
func (l *defaultLogger) Errorf(format string, v ...any) { l.logf(LevelError, &format, v...) }

func (l *defaultLogger) CtxDebugf(_ context.Context, format string, v ...any) {
	l.logf(LevelDebug, &format, v...)
}

func (l *defaultLogger) CtxInfof(_ context.Context, format string, v ...any) {
	l.logf(LevelInfo, &format, v...)
}

func (l *defaultLogger) CtxWarnf(_ context.Context, format string, v ...any) {
	l.logf(LevelWarn, &format, v...)
}

func (l *defaultLogger) CtxErrorf(_ context.Context, format string, v ...any) {
	l.logf(LevelError, &format, v...)
}

func (l *defaultLogger) logf(lv Level, format *string, v ...any) {
	// 低于设置的日志级别，将不会输出。
	if Level(atomic.LoadInt64(&l.level)) > lv {
		return
	}
	msg := lv.String()
	if format != nil {
		msg += fmt.Sprintf(*format, v...)
	} else {
		msg += fmt.Sprint(v...)
	}
	_ = l.std.Output(l.depth, msg)
}
