// Package apperror defines the error kinds every layer returns and the HTTP
// layer maps to statuses.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthentication
	KindAuthorization
	KindConflict
	KindPolicy
	KindTransient
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindPolicy:
		return "policy"
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// ItemError is one entry of a structured validation list. Item is the
// 1-based position in a list input and is zero for plain field errors.
type ItemError struct {
	Item      int    `json:"item,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Params  map[string]any
	Items   []ItemError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

func (e *Error) WithParam(key string, value any) *Error {
	cp := *e
	cp.Params = make(map[string]any, len(e.Params)+1)
	for k, v := range e.Params {
		cp.Params[k] = v
	}
	cp.Params[key] = value
	return &cp
}

func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// ValidationItems reports every problem found in a list input at once.
func ValidationItems(message string, items []ItemError) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Items: items}
}

func NotFound(resource string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    resource + "_not_found",
		Message: resource + " not found",
		Params:  map[string]any{"Resource": resource},
	}
}

func Unauthenticated(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

func Forbidden() *Error {
	return New(KindAuthorization, "forbidden", "access denied")
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Code: field + "_taken", Message: message, Field: field}
}

func Policy(code, message string) *Error {
	return New(KindPolicy, code, message)
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Code: "service_unavailable", Message: "service temporarily unavailable, retry later", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal server error", Err: err}
}

// As extracts an *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
