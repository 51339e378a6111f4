package usecase

import (
	"errors"
	"fmt"
)

// ErrorKind tells the presentation layer how to react to a failed operation.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindNotFound               ErrorKind = "not_found"
	KindForbidden              ErrorKind = "forbidden"
	KindSlotConflict           ErrorKind = "slot_conflict"
	KindVoucherNotFound        ErrorKind = "voucher_not_found"
	KindVoucherExpired         ErrorKind = "voucher_expired"
	KindVoucherAlreadyRedeemed ErrorKind = "voucher_already_redeemed"
	KindPaymentFailed          ErrorKind = "payment_failed"
	KindInvalidTransition      ErrorKind = "invalid_transition"
)

// Error is a recoverable, caller-facing failure. Anything that is not an *Error is unexpected.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on kind, so errors.Is(err, ErrSlotConflict) holds for any slot conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation             = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound               = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden              = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrSlotConflict           = &Error{Kind: KindSlotConflict, Message: "slot is no longer available"}
	ErrVoucherNotFound        = &Error{Kind: KindVoucherNotFound, Message: "voucher not found"}
	ErrVoucherExpired         = &Error{Kind: KindVoucherExpired, Message: "voucher has expired"}
	ErrVoucherAlreadyRedeemed = &Error{Kind: KindVoucherAlreadyRedeemed, Message: "voucher has already been redeemed"}
	ErrPaymentFailed          = &Error{Kind: KindPaymentFailed, Message: "payment failed"}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Details: fields}
}

func fieldError(field, message string) *Error {
	return validationError(map[string]string{field: message})
}

// KindOf returns the kind of a caller-facing error, or "" for unexpected failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// isVoucherError reports whether err is one of the three redemption failures.
func isVoucherError(err error) bool {
	switch KindOf(err) {
	case KindVoucherNotFound, KindVoucherExpired, KindVoucherAlreadyRedeemed:
		return true
	}
	return false
}
