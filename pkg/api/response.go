package api

import "protect/pkg/errx"

// Response 命令行 --json 输出的统一格式
type Response[T any] struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OK 构造成功响应
func OK[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

// Fail 构造失败响应
func Fail[T any](code, message string) Response[T] {
	return Response[T]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// FromError 按错误码构造失败响应，非 errx 错误记为 INTERNAL
func FromError(err error) Response[EmptyData] {
	if e, ok := errx.As(err); ok {
		return Fail[EmptyData](string(e.Code), err.Error())
	}
	return Fail[EmptyData]("INTERNAL", err.Error())
}

// EmptyData 用于无业务数据返回的场景
type EmptyData struct{}
