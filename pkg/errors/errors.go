// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeTimeout      Code = "TIMEOUT"
	CodeConfig       Code = "CONFIG_ERROR"

	// 排班引擎相关
	CodeNoFeasibleSolution Code = "NO_FEASIBLE_SOLUTION"
	CodeInvalidEdit        Code = "INVALID_EDIT"

	// 数据相关
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// FieldUnsatisfiable 不可满足项列表在 Fields 中的键
const FieldUnsatisfiable = "unsatisfiable"

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// ExitCode 错误码转命令行退出码
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeInvalidInput, CodeValidationFail, CodeInvalidEdit:
		return 2
	case CodeConfig:
		return 3
	case CodeNoFeasibleSolution:
		return 4
	case CodeTimeout:
		return 5
	default:
		return 1
	}
}

// Unsatisfiable 返回不可行错误中列出的不可满足项
func Unsatisfiable(err error) []string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Fields == nil {
		return nil
	}
	items, _ := appErr.Fields[FieldUnsatisfiable].([]string)
	return items
}

// ErrTimeout 操作超时
var ErrTimeout = New(CodeTimeout, "操作超时")

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// ConfigError 创建配置错误（规则目录损坏等，属于致命错误）
func ConfigError(reason string) *AppError {
	return New(CodeConfig, "规则目录无效").WithDetails(reason)
}

// Infeasible 创建带不可满足项列表的无可行解错误
func Infeasible(reason string, items []string) *AppError {
	list := make([]string, len(items))
	copy(list, items)
	return New(CodeNoFeasibleSolution, reason).
		WithDetails(strings.Join(list, "; ")).
		WithField(FieldUnsatisfiable, list)
}

// InvalidEdit 创建预览编辑无效错误
func InvalidEdit(reason string) *AppError {
	return New(CodeInvalidEdit, reason)
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeValidationFail, "验证失败")
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	if len(ve.Errors) > 0 {
		err.Details = ve.Error()
	}
	return err
}
