package errx

import (
	"errors"
	"fmt"
)

type Code string

type Error struct {
	Code Code
	Msg  string
	Err  error
}

// Error 参数类错误只输出消息本身，调用方依赖其固定文本
func (e *Error) Error() string {
	if e.Code == CodeInvalidArgument && e.Err == nil {
		return e.Msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) *Error { return &Error{Code: code, Msg: msg} }

func Wrap(code Code, err error, msg string) *Error { return &Error{Code: code, Msg: msg, Err: err} }

// Invalid 构造参数缺失/非法错误
func Invalid(msg string) *Error { return New(CodeInvalidArgument, msg) }

func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeHTTPStatus      Code = "HTTP_STATUS"
	CodeDecode          Code = "DECODE"
	CodeTransport       Code = "TRANSPORT"
	CodeConfig          Code = "CONFIG"
)

// As 取出错误链中最外层的 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
