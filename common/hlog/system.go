package hlog

import (
	"context"
	"io"
	"strings"
	"sync"
)

const systemLogPrefix = "windstream: "

// ConnErrorFormat 是连接级错误的日志格式，静默模式下不输出。
const ConnErrorFormat = "连接出错: conn=%s remote=%s error=%v"

var silentMode = false

// SetSilentMode 设置系统日志的静默开关。
// 例如：对端频繁断开时，开启静默模式可屏蔽 ConnErrorFormat 格式的错误日志。
func SetSilentMode(s bool) {
	silentMode = s
}

var builderPool = sync.Pool{New: func() any {
	return &strings.Builder{}
}}

type systemLogger struct {
	logger FullLogger
	prefix string // 日志前缀
}

func (l *systemLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

func (l *systemLogger) SetLevel(lv Level) {
	l.logger.SetLevel(lv)
}

func (l *systemLogger) Trace(v ...any) { l.logger.Trace(append([]any{l.prefix}, v...)...) }
func (l *systemLogger) Debug(v ...any) { l.logger.Debug(append([]any{l.prefix}, v...)...) }
func (l *systemLogger) Info(v ...any)  { l.logger.Info(append([]any{l.prefix}, v...)...) }
func (l *systemLogger) Warn(v ...any)  { l.logger.Warn(append([]any{l.prefix}, v...)...) }
func (l *systemLogger) Error(v ...any) { l.logger.Error(append([]any{l.prefix}, v...)...) }

func (l *systemLogger) Tracef(format string, v ...any) {
	l.logger.Tracef(l.addPrefix(format), v...)
}

func (l *systemLogger) Debugf(format string, v ...any) {
	l.logger.Debugf(l.addPrefix(format), v...)
}

func (l *systemLogger) Infof(format string, v ...any) {
	l.logger.Infof(l.addPrefix(format), v...)
}

func (l *systemLogger) Warnf(format string, v ...any) {
	l.logger.Warnf(l.addPrefix(format), v...)
}

func (l *systemLogger) Errorf(format string, v ...any) {
	if silentMode && format == ConnErrorFormat {
		return
	}
	l.logger.Errorf(l.addPrefix(format), v...)
}

func (l *systemLogger) CtxDebugf(ctx context.Context, format string, v ...any) {
	l.logger.CtxDebugf(ctx, l.addPrefix(format), v...)
}

func (l *systemLogger) CtxInfof(ctx context.Context, format string, v ...any) {
	l.logger.CtxInfof(ctx, l.addPrefix(format), v...)
}

func (l *systemLogger) CtxWarnf(ctx context.Context, format string, v ...any) {
	l.logger.CtxWarnf(ctx, l.addPrefix(format), v...)
}

func (l *systemLogger) CtxErrorf(ctx context.Context, format string, v ...any) {
	if silentMode && format == ConnErrorFormat {
		return
	}
	l.logger.CtxErrorf(ctx, l.addPrefix(format), v...)
}

func (l *systemLogger) addPrefix(format string) string {
	builder := builderPool.Get().(*strings.Builder)
	defer func() {
		builder.Reset()
		builderPool.Put(builder)
	}()

	builder.Grow(len(l.prefix) + len(format))
	builder.WriteString(l.prefix)
	builder.WriteString(format)
	return builder.String()
}
