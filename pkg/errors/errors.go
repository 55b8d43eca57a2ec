// Package errors 定义跨模块共享的错误类别。
// 各业务模块的哨兵错误包装这些类别，Handler 层据此映射 HTTP 状态码。
package errors

import "errors"

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrBadRequest 请求参数或业务前置条件不满足
	ErrBadRequest = errors.New("请求无效")
)

// IsNotFound 是否属于"资源不存在"类错误
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsBadRequest 是否属于"请求无效"类错误
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }
