// Package ordererr defines the error taxonomy of the order core.
// Not-found errors carry stable numeric codes so API callers can branch
// on "doesn't exist" without string matching.
package ordererr

import (
	"errors"
	"fmt"
)

const (
	CodeOrderNotFound   = 404
	CodeNoOrdersFound   = 405
	CodeBasketNotFound  = 406
	CodeInvoiceNotFound = 407
)

// Error is a domain error with a stable numeric code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Is matches two coded errors by code, so sentinel comparison with
// errors.Is works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

var (
	ErrOrderNotFound   = &Error{Code: CodeOrderNotFound, Message: "order not found"}
	ErrNoOrdersFound   = &Error{Code: CodeNoOrdersFound, Message: "no orders found"}
	ErrBasketNotFound  = &Error{Code: CodeBasketNotFound, Message: "basket not found"}
	ErrInvoiceNotFound = &Error{Code: CodeInvoiceNotFound, Message: "invoice not found"}

	// ErrPermissionDenied is raised before any mutation a caller is not
	// allowed to perform. It is never bypassed, except for an explicit
	// system identity.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrHashMismatch guards transactions against being applied to the
	// wrong order.
	ErrHashMismatch = errors.New("transaction hash does not match order hash")

	// ErrGuestHasNoOrder is returned by the guest basket, which can
	// never be bound to an order.
	ErrGuestHasNoOrder = &Error{Code: CodeOrderNotFound, Message: "guest basket has no order"}
)

// NotFound builds a coded not-found error with context.
func NotFound(code int, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
