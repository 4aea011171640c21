package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Error codes. Every error raised by the mapping subsystem carries one of these.
const (
	CodeValidation = iota + 1
	CodeMergeConflict
	CodeUnknownAnalyzer
	CodeFielddataDisabled
	CodeUnsupportedDerivation
	CodeInternal
)

// Sentinels for errors.Is. Matching is done on Code, so a wrapped or
// context-enriched *Error still matches its sentinel.
var (
	ErrValidation                        = &Error{Code: CodeValidation, Message: "mapping validation failed"}
	ErrMergeConflict                     = &Error{Code: CodeMergeConflict, Message: "mapping merge conflict"}
	ErrUnknownAnalyzer                   = &Error{Code: CodeUnknownAnalyzer, Message: "unknown analyzer"}
	ErrFielddataDisabledOnUnindexedField = &Error{Code: CodeFielddataDisabled, Message: "fielddata disabled"}
	ErrUnsupportedDerivation             = &Error{Code: CodeUnsupportedDerivation, Message: "source derivation unsupported"}
	ErrInternal                          = &Error{Code: CodeInternal, Message: "internal invariant breach"}
)

// Error represents a custom error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same code. Unknown
// analyzers and fielddata misconfiguration are surfaced at build time, so
// they also match ErrValidation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == 0 {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeValidation && (e.Code == CodeUnknownAnalyzer || e.Code == CodeFielddataDisabled)
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Wrap wraps an error with message
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    GetCode(err),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a new error
func New(message string) *Error {
	return &Error{
		Message: message,
		Stack:   captureStack(),
	}
}

// Errorf creates a new formatted error
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Validation reports a violated mapping invariant on field.
func Validation(field string, format string, args ...interface{}) *Error {
	return WithCodef(CodeValidation, format, args...).WithContext("field", field)
}

// MergeConflict reports a fixed parameter that differs between the current
// and the incoming mapping.
func MergeConflict(field, parameter string, from, to interface{}) *Error {
	return WithCodef(CodeMergeConflict, "Cannot update parameter [%s] from [%v] to [%v]", parameter, from, to).
		WithContexts(map[string]string{"field": field, "parameter": parameter})
}

// UnknownAnalyzer reports an analyzer name that is absent from the registry.
func UnknownAnalyzer(field, role, name string) *Error {
	return WithCodef(CodeUnknownAnalyzer, "analyzer [%s] has not been configured in mappings", name).
		WithContexts(map[string]string{"field": field, "role": role, "analyzer": name})
}

// FielddataDisabled reports fielddata requested on an unindexed field.
func FielddataDisabled(field string) *Error {
	return WithCodef(CodeFielddataDisabled, "Cannot enable fielddata on a [text] field that is not indexed: [%s]", field).
		WithContext("field", field)
}

// UnsupportedDerivation reports that a field's source cannot be rebuilt.
func UnsupportedDerivation(field, reason string) *Error {
	return WithCodef(CodeUnsupportedDerivation, "Unable to derive source for [%s]: %s", field, reason).
		WithContext("field", field)
}

// Internal reports a broken internal invariant (a defect, not a user error).
func Internal(format string, args ...interface{}) *Error {
	return WithCodef(CodeInternal, format, args...)
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context)),
	}
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})

	return newErr
}

// WithContexts adds multiple contexts to an error. Keys are appended in
// lexical order so the result is deterministic.
func (e *Error) WithContexts(kv map[string]string) *Error {
	if e == nil || len(kv) == 0 {
		return e
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := e
	for _, k := range keys {
		out = out.WithContext(k, kv[k])
	}
	return out
}

// Lookup returns the first context value stored under key.
func (e *Error) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, kv := range e.Context {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// drop captureStack and the constructor frames
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}

	return strings.TrimSpace(stack)
}

// GetCode returns the error code of the first *Error in the chain.
func GetCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// GetStack returns the error stack trace
func GetStack(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Stack
	}
	return ""
}

// Is checks if the error chain contains the target error
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a re-export of the standard library's errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Cause returns the underlying error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
