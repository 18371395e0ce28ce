package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is / errors.As，Err 保存底层原因
//
// 使用场景：
//   - 向量错误：DIMENSION_MISMATCH, DEGENERATE_VECTOR, MISSING_EMBEDDING
//   - 画像更新：UNRESOLVED_REFERENCE
//   - Embedding 服务：EMBEDDING_SERVICE
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DEGENERATE_VECTOR"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "vector", "profile"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 比较，使哨兵错误可以配合 errors.Is 使用。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层原因的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 向量与画像相关
	ErrorCodeDimensionMismatch   = "DIMENSION_MISMATCH"   // 向量维度不一致
	ErrorCodeDegenerateVector    = "DEGENERATE_VECTOR"    // 零范数向量
	ErrorCodeMissingEmbedding    = "MISSING_EMBEDDING"    // 实体缺少 embedding
	ErrorCodeUnresolvedReference = "UNRESOLVED_REFERENCE" // 事件引用了未知用户/商品
	ErrorCodeEmbeddingService    = "EMBEDDING_SERVICE"    // 外部 embedding 服务重试耗尽
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleVector    = "vector"    // 向量模块
	ModuleEvent     = "event"     // 行为事件模块
	ModuleProfile   = "profile"   // 画像更新模块
	ModuleRank      = "rank"      // 打分模块
	ModuleEmbedding = "embedding" // embedding 服务模块
	ModuleService   = "service"   // 服务模块
	ModuleConfig    = "config"    // 配置模块
)

// ErrDimensionMismatch 返回维度不一致错误。
func ErrDimensionMismatch(want, got int) *DomainError {
	return NewDomainError(ModuleVector, ErrorCodeDimensionMismatch,
		fmt.Sprintf("vector: dimension mismatch: want %d, got %d", want, got))
}

// ErrDegenerateVector 返回零范数向量错误。
func ErrDegenerateVector() *DomainError {
	return NewDomainError(ModuleVector, ErrorCodeDegenerateVector, "vector: zero-norm vector")
}

// ErrMissingEmbedding 返回缺少 embedding 的错误，entity 形如 "product:42"。
func ErrMissingEmbedding(entity string) *DomainError {
	return NewDomainError(ModuleVector, ErrorCodeMissingEmbedding, "vector: missing embedding for "+entity)
}

// ErrUnresolvedReference 返回事件引用无法解析的错误。
func ErrUnresolvedReference(kind, id string) *DomainError {
	return NewDomainError(ModuleProfile, ErrorCodeUnresolvedReference,
		fmt.Sprintf("profile: unresolved %s reference %q", kind, id))
}

// ErrEmbeddingService 返回 embedding 服务重试耗尽的错误。
func ErrEmbeddingService(attempts int, err error) *DomainError {
	return WrapDomainError(ModuleEmbedding, ErrorCodeEmbeddingService,
		fmt.Sprintf("embedding: service failed after %d attempts", attempts), err)
}

// ErrInvalidInput 返回参数无效错误。
func ErrInvalidInput(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, message)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsDimensionMismatch 检查错误是否为 DIMENSION_MISMATCH
func IsDimensionMismatch(err error) bool { return hasCode(err, ErrorCodeDimensionMismatch) }

// IsDegenerateVector 检查错误是否为 DEGENERATE_VECTOR
func IsDegenerateVector(err error) bool { return hasCode(err, ErrorCodeDegenerateVector) }

// IsMissingEmbedding 检查错误是否为 MISSING_EMBEDDING
func IsMissingEmbedding(err error) bool { return hasCode(err, ErrorCodeMissingEmbedding) }

// IsUnresolvedReference 检查错误是否为 UNRESOLVED_REFERENCE
func IsUnresolvedReference(err error) bool { return hasCode(err, ErrorCodeUnresolvedReference) }

// IsEmbeddingService 检查错误是否为 EMBEDDING_SERVICE
func IsEmbeddingService(err error) bool { return hasCode(err, ErrorCodeEmbeddingService) }

// ErrorCode 返回错误链中 DomainError 的代码，没有则返回空串（用于打点/日志）。
func ErrorCode(err error) string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code
	}
	return ""
}
