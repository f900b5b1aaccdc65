package domain

import (
	"errors"
	"fmt"
)

// 领域错误

// ErrNotFound 目录对象不存在错误
type ErrNotFound struct {
	Kind string
	Key  string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// ErrSchemaMismatch 源表列在目标表中不存在
type ErrSchemaMismatch struct {
	Column   string
	Relation string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("target relation %s does not contain column \"%s\"", e.Relation, e.Column)
}

// ErrTransport 访问统计服务的网络错误（可恢复）
type ErrTransport struct {
	Endpoint string
	Err      error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("access statistics server %s failed: %v", e.Endpoint, e.Err)
}

func (e *ErrTransport) Unwrap() error {
	return e.Err
}

// ErrProtocol 响应格式错误或 message 不是 "OK"（可恢复）
type ErrProtocol struct {
	Reason string
	Body   string
}

func (e *ErrProtocol) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol error: %s (body: %s)", e.Reason, e.Body)
}

// ErrUnsupportedOperation 虚拟表上的写操作
type ErrUnsupportedOperation struct {
	AccessMethod string
	Operation    string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("operation %s is not supported by %s access method", e.Operation, e.AccessMethod)
}

// 辅助函数

// NewErrNotFound 创建不存在错误
func NewErrNotFound(kind string, key interface{}) *ErrNotFound {
	return &ErrNotFound{Kind: kind, Key: fmt.Sprint(key)}
}

// NewErrSchemaMismatch 创建列不匹配错误
func NewErrSchemaMismatch(column, relation string) *ErrSchemaMismatch {
	return &ErrSchemaMismatch{Column: column, Relation: relation}
}

// NewErrTransport 创建网络错误
func NewErrTransport(endpoint string, err error) *ErrTransport {
	return &ErrTransport{Endpoint: endpoint, Err: err}
}

// NewErrProtocol 创建协议错误
func NewErrProtocol(reason, body string) *ErrProtocol {
	return &ErrProtocol{Reason: reason, Body: body}
}

// NewErrUnsupportedOperation 创建不支持操作错误
func NewErrUnsupportedOperation(accessMethod, operation string) *ErrUnsupportedOperation {
	return &ErrUnsupportedOperation{AccessMethod: accessMethod, Operation: operation}
}

// IsNotFound 判断是否为不存在错误
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

// IsSchemaMismatch 判断是否为列不匹配错误
func IsSchemaMismatch(err error) bool {
	var target *ErrSchemaMismatch
	return errors.As(err, &target)
}

// IsUnsupportedOperation 判断是否为不支持操作错误
func IsUnsupportedOperation(err error) bool {
	var target *ErrUnsupportedOperation
	return errors.As(err, &target)
}

// IsRecoverable 网络错误和协议错误可以降级为“无统计信息”
func IsRecoverable(err error) bool {
	var transport *ErrTransport
	var protocol *ErrProtocol
	return errors.As(err, &transport) || errors.As(err, &protocol)
}
