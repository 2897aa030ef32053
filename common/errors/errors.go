package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState 表示在不允许的状态下调用了操作，属于调用方的编程错误。
	ErrInvalidState = errors.New("无效状态")
	// ErrBackpressure 表示传输层暂时无法接收更多数据，须等待可写通知。
	ErrBackpressure = errors.New("背压中，等待可写通知")
	// ErrAborted 表示对端断开或连接被强制关闭。
	ErrAborted = errors.New("连接已中止")

	// ErrFramingMismatch 表示分帧模式已确定，当前操作与之冲突。
	ErrFramingMismatch = fmt.Errorf("%w: 分帧模式冲突", ErrInvalidState)
	// ErrBodyOverflow 表示正文超出或不符合已声明的 Content-Length。
	ErrBodyOverflow = fmt.Errorf("%w: 正文长度与声明不符", ErrInvalidState)

	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("连接已关闭")
	ErrNeedMore         = errors.New("需要更多数据")
	ErrBodyTooLarge     = errors.New("正文大小超过给定限制")
	ErrBrokenChunk      = errors.New("错误分块的正文流")
	ErrHeadTooLarge     = errors.New("请求头过大")
)

type ErrorType uint64

// Error 表示一个带有错误类型和元信息的错误规范。
type Error struct {
	Err  error
	Type ErrorType
	Meta any
}

// 返回错误的消息字符串，字符串元信息会作为后缀。
func (msg *Error) Error() string {
	if s, ok := msg.Meta.(string); ok && s != "" {
		return msg.Err.Error() + ": " + s
	}
	return msg.Err.Error()
}

func (msg *Error) Unwrap() error {
	return msg.Err
}

func (msg *Error) IsType(flags ErrorType) bool {
	return (msg.Type & flags) > 0
}

func (msg *Error) SetType(flags ErrorType) *Error {
	msg.Type = flags
	return msg
}

func (msg *Error) SetMeta(data any) *Error {
	msg.Meta = data
	return msg
}

const (
	// ErrorTypeState 用于终态之后或顺序错误的调用。
	ErrorTypeState ErrorType = 1 << iota
	// ErrorTypeBackpressure 用于背压期间被拒绝的写入。
	ErrorTypeBackpressure
	// ErrorTypeAborted 用于连接中止。
	ErrorTypeAborted
	// ErrorTypePrivate 表示一个私有的错误。
	ErrorTypePrivate
	// ErrorTypePublic 表示一个公开的错误。
	ErrorTypePublic
	// ErrorTypeAny 表示任何其他错误。
	ErrorTypeAny
)

var _ error = (*Error)(nil)

// New 新建一个指定错误和错误类型及元数据的自定义错误。
func New(err error, t ErrorType, meta any) *Error {
	return &Error{
		Err:  err,
		Type: t,
		Meta: meta,
	}
}

func NewPublic(err string) *Error {
	return New(errors.New(err), ErrorTypePublic, nil)
}

func NewPrivate(err string) *Error {
	return New(errors.New(err), ErrorTypePrivate, nil)
}

func NewPublicf(format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePublic, nil)
}

// NewInvalidState 新建一个状态错误，op 为触发错误的操作，detail 说明当时的状态。
func NewInvalidState(op, detail string) *Error {
	return New(ErrInvalidState, ErrorTypeState, op+" "+detail)
}

// IsInvalidState 判断 err 是否源于无效状态。
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsBackpressure 判断 err 是否为背压拒绝。
func IsBackpressure(err error) bool {
	return errors.Is(err, ErrBackpressure)
}

// IsAborted 判断 err 是否为连接中止或关闭。
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, ErrConnectionClosed)
}
