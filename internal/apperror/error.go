// Package apperror provides the structured error taxonomy shared by every
// operation in the plugin, plus classification of raw transport/SDK failures
// onto that taxonomy.
package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"
)

// AppError implements the error interface and carries the error code, an open
// context map, and optional troubleshooting steps for rendering guidance.
type AppError struct {
	Code            Code           `json:"code"`
	Message         string         `json:"message"`
	Operation       string         `json:"operation,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
	Troubleshooting []string       `json:"troubleshooting,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	cause           error
	stack           []uintptr
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is comparison by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Field returns a context field value, or nil if absent.
func (e *AppError) Field(key string) any {
	if e.Fields == nil {
		return nil
	}
	return e.Fields[key]
}

// ToLog serializes the error for structured logging.
func (e *AppError) ToLog() map[string]any {
	log := map[string]any{
		"code":      e.Code,
		"message":   e.Message,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}

	if e.Operation != "" {
		log["operation"] = e.Operation
	}
	for k, v := range e.Fields {
		log["ctx."+k] = v
	}
	if e.cause != nil {
		log["cause"] = e.cause.Error()
	}
	if len(e.stack) > 0 {
		log["stack"] = e.formatStack()
	}

	return log
}

// formatStack formats the captured stack trace.
func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// captureStack captures the current stack trace.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError.
type Option func(*AppError)

// WithMessage sets a custom message.
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithOperation records the operation that failed.
func WithOperation(operation string) Option {
	return func(e *AppError) {
		e.Operation = operation
	}
}

// WithField adds a single context field.
func WithField(key string, value any) Option {
	return func(e *AppError) {
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[key] = value
	}
}

// WithFields merges context fields.
func WithFields(fields map[string]any) Option {
	return func(e *AppError) {
		if len(fields) == 0 {
			return
		}
		if e.Fields == nil {
			e.Fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			e.Fields[k] = v
		}
	}
}

// WithTroubleshooting attaches ordered remediation steps.
func WithTroubleshooting(steps ...string) Option {
	return func(e *AppError) {
		e.Troubleshooting = append(e.Troubleshooting, steps...)
	}
}

// WithRetryable overrides the default retry classification for the code.
func WithRetryable(retryable bool) Option {
	return WithField("isRetryable", retryable)
}

// WithCause wraps an underlying error.
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Wrap wraps a standard error into an AppError. Existing AppErrors pass
// through, gaining the operation name if they lack one; the original error
// is never modified.
func Wrap(err error, code Code, operation string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if operation != "" && appErr.Operation == "" {
			return appErr.withContext(operation, nil)
		}
		return appErr
	}

	return New(code, WithOperation(operation), WithCause(err), WithMessage(err.Error()))
}

// withContext returns a copy of the error carrying the operation (when the
// original has none) and the supplied fields merged over its own. Errors are
// immutable once constructed, so augmentation always goes through a copy.
func (e *AppError) withContext(operation string, fields map[string]any) *AppError {
	clone := *e
	if clone.Operation == "" {
		clone.Operation = operation
	}
	if len(fields) > 0 {
		merged := make(map[string]any, len(e.Fields)+len(fields))
		for k, v := range e.Fields {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
		clone.Fields = merged
	}
	return &clone
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// RenderUserMessage renders a stable, user-actionable message: the base
// message, the operation, a code-specific remediation suffix, the
// troubleshooting steps, and any environment variable guidance attached under
// the "localEnv"/"productionEnv" context fields as KEY=value lines.
func RenderUserMessage(e *AppError) string {
	if e == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf(" (operation: %s)", e.Operation))
	}

	if suffix, ok := remediation[e.Code]; ok {
		sb.WriteString(" ")
		sb.WriteString(suffix)
	}

	for i, step := range e.Troubleshooting {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, step))
	}

	appendEnvBlock(&sb, "Local development settings:", e.Field("localEnv"))
	appendEnvBlock(&sb, "Production settings:", e.Field("productionEnv"))

	return sb.String()
}

func appendEnvBlock(sb *strings.Builder, title string, value any) {
	env, ok := value.(map[string]string)
	if !ok || len(env) == 0 {
		return
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("\n")
	sb.WriteString(title)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n%s=%s", k, env[k]))
	}
}
