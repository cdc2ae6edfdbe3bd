package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"sync"
)

// Code 表示系统内的统一错误码，同时也是 HTTP 响应中的 error.code。
type Code string

// Kind 对错误码进行归类，HTTP 层只依据 Kind 决定状态码。
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuth           Kind = "auth"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindUnavailable    Kind = "unavailable"
	KindNotImplemented Kind = "not_implemented"
	KindInternal       Kind = "internal"
)

// Severity 描述错误的严重程度，用于告警和审计。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message   string
	Kind      Kind
	Severity  Severity
	Retryable bool
	Alert     bool
}

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeMissingProofHash      Code = "MISSING_PROOF_HASH"
	CodeInvalidProof          Code = "INVALID_PROOF"
	CodeInvalidChallenge      Code = "INVALID_CHALLENGE"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeProofNotFound         Code = "PROOF_NOT_FOUND"
	CodeConsentNotFound       Code = "CONSENT_NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeAdapterUnavailable    Code = "ADAPTER_UNAVAILABLE"
	CodeNotImplemented        Code = "NOT_IMPLEMENTED"
	CodeStorageFailure        Code = "STORAGE_FAILURE"
	CodeInitializationFailure Code = "INITIALIZATION_FAILURE"
	CodeTimeout               Code = "TIMEOUT"
	CodeInternal              Code = "INTERNAL_ERROR"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeValidation:       {Message: "validation failed", Kind: KindValidation, Severity: SeverityInfo},
		CodeMissingProofHash: {Message: "proof hash is required", Kind: KindValidation, Severity: SeverityInfo},
		CodeInvalidProof:     {Message: "invalid proof hash or verification failed", Kind: KindValidation, Severity: SeverityInfo},
		CodeInvalidChallenge: {Message: "invalid or expired challenge", Kind: KindAuth, Severity: SeverityInfo},
		CodeUnauthorized:     {Message: "unauthorized", Kind: KindAuth, Severity: SeverityInfo},
		CodeForbidden:        {Message: "forbidden", Kind: KindForbidden, Severity: SeverityWarning},
		CodeProofNotFound:    {Message: "proof not found", Kind: KindNotFound, Severity: SeverityInfo},
		CodeConsentNotFound:  {Message: "consent not found", Kind: KindNotFound, Severity: SeverityInfo},
		CodeConflict:         {Message: "resource conflict", Kind: KindInternal, Severity: SeverityWarning},
		CodeAdapterUnavailable: {
			Message:   "network adapter unavailable",
			Kind:      KindUnavailable,
			Severity:  SeverityCritical,
			Retryable: true,
			Alert:     true,
		},
		CodeNotImplemented: {
			Message:  "operation not implemented for this network",
			Kind:     KindNotImplemented,
			Severity: SeverityCritical,
			Alert:    true,
		},
		CodeStorageFailure: {
			Message:   "storage failure",
			Kind:      KindInternal,
			Severity:  SeverityCritical,
			Retryable: true,
			Alert:     true,
		},
		CodeInitializationFailure: {
			Message:   "service not initialized",
			Kind:      KindInternal,
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
		CodeTimeout: {
			Message:   "operation timed out",
			Kind:      KindUnavailable,
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
		CodeInternal: {
			Message:  "internal server error",
			Kind:     KindInternal,
			Severity: SeverityCritical,
			Alert:    true,
		},
	}
)

// Register 允许业务模块在初始化阶段注册新的错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if attr.Kind == "" {
		attr.Kind = KindInternal
	}
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 INTERNAL_ERROR 的属性。
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeInternal]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
	alert    *bool
	severity *Severity
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息，例如校验失败的字段。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithAlert 指定错误是否需要告警。
func WithAlert(alert bool) Option {
	return func(e *Error) {
		e.alert = &alert
	}
}

// WithSeverity 覆盖默认严重程度。
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Validation 构造携带字段明细的校验错误。
func Validation(message string, fields map[string]string) *Error {
	e := New(CodeValidation, message)
	for field, reason := range fields {
		WithMetadata(field, reason)(e)
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Kind 返回错误码所属的类别。
func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return AttributesOf(e.code).Kind
}

// Message 返回面向调用方的错误信息，不包含 cause。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata 返回附加信息。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Fields 以稳定顺序返回 metadata 的键。
func (e *Error) Fields() []string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.metadata))
	for k := range e.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Retryable 判断是否可重试。
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return AttributesOf(e.code).Retryable
}

// ShouldAlert 判断是否需要告警。
func (e *Error) ShouldAlert() bool {
	if e == nil {
		return false
	}
	if e.alert != nil {
		return *e.alert
	}
	return AttributesOf(e.code).Alert
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return AttributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码，非统一错误视为 INTERNAL_ERROR。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeInternal
}

// KindOf 返回错误类别。
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind()
	}
	return KindInternal
}

// HasCode 判断错误链中是否包含指定错误码。
func HasCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{code: code})
}

// ShouldAlert 判断是否需要触发告警。
func ShouldAlert(err error) bool {
	if e, ok := From(err); ok {
		return e.ShouldAlert()
	}
	return err != nil
}

// SeverityOf 返回错误严重程度。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeInternal).Severity
}
