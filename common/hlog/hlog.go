// Package hlog 提供分级日志，分为业务用的默认记录器和引擎内部用的系统记录器。
package hlog

import (
	"io"
	"log"
	"os"
)

var (
	// 提供默认记录器供使用
	logger FullLogger = newDefaultLogger(os.Stderr)

	// 提供系统记录器供使用
	sysLogger FullLogger = &systemLogger{
		logger: newDefaultLogger(os.Stderr),
		prefix: systemLogPrefix,
	}
)

func newDefaultLogger(w io.Writer) *defaultLogger {
	return &defaultLogger{
		std:   log.New(w, "", log.LstdFlags|log.Lshortfile|log.Lmicroseconds),
		depth: 4,
		level: int64(LevelInfo),
	}
}

// SetOutput 设置默认记录器和系统记录器的写入器。默认为 os.Stderr。
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	sysLogger.SetOutput(w)
}

// SetLevel 设置两个记录器的输出级别，低于该级别将不输出。默认级别为 LevelInfo。
func SetLevel(lv Level) {
	logger.SetLevel(lv)
	sysLogger.SetLevel(lv)
}

// DefaultLogger 返回默认记录器。
func DefaultLogger() FullLogger {
	return logger
}

// SystemLogger 返回系统日志记录器。该函数不建议业务端使用。
func SystemLogger() FullLogger {
	return sysLogger
}

// SetLogger 设置默认记录器和系统记录器。并发不安全，须在服务启动前调用。
func SetLogger(v FullLogger) {
	logger = v
	sysLogger = &systemLogger{
		logger: v,
		prefix: systemLogPrefix,
	}
}

// Debugf 调用默认记录器的 Debugf 方法。
func Debugf(format string, v ...any) {
	logger.Debugf(format, v...)
}

// Infof 调用默认记录器的 Infof 方法。
func Infof(format string, v ...any) {
	logger.Infof(format, v...)
}

// Warnf 调用默认记录器的 Warnf 方法。
func Warnf(format string, v ...any) {
	logger.Warnf(format, v...)
}

// Errorf 调用默认记录器的 Errorf 方法。
func Errorf(format string, v ...any) {
	logger.Errorf(format, v...)
}
