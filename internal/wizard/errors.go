package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError 本地校验失败，状态不变，可直接修正后重试
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// TransportError 远端调用失败
type TransportError struct {
	Op          string
	Status      int
	FieldErrors map[string][]string
	Err         error
}

func (e *TransportError) Error() string {
	if len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for f := range e.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f+": "+strings.Join(e.FieldErrors[f], ", "))
		}
		return strings.Join(parts, "; ")
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// asTransportError 非 TransportError 的错误统一包装
func asTransportError(op string, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Op: op, Err: err}
}

// InconsistentStateError 商品已创建，但回查失败
type InconsistentStateError struct {
	ProductID int64
	Err       error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("product %d was created but could not be reloaded: %v", e.ProductID, e.Err)
}

func (e *InconsistentStateError) Unwrap() error {
	return e.Err
}

// IsValidation 是否为本地校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
