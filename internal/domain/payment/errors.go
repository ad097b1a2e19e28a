package payment

import (
	"errors"
	"fmt"
)

// Error codes surfaced to the user.
const (
	CodeConfigMissing         = "CONFIG_MISSING"
	CodeSDKLoadError          = "SDK_LOAD_ERROR"
	CodePaymentFail           = "PAYMENT_FAIL"
	CodeMissingQueryParams    = "MISSING_QUERY_PARAMS"
	CodeConfirmFailed         = "CONFIRM_FAILED"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeAlreadyConfirmedOrder = "ALREADY_CONFIRMED_ORDER"
)

// Default messages paired with the codes above.
const (
	MessageMissingQueryParams = "Missing payment callback query parameters."
	MessageConfirmFailed      = "Payment confirmation failed."
	MessageConfigMissing      = "Payment is not configured."
	MessageSDKLoadError       = "Failed to load the payment module."
	MessagePaymentFail        = "Payment request failed."
)

// Error is a payment failure carrying a stable code.
type Error struct {
	Code    string
	Message string
	Err     error
}

// NewError builds an Error wrapping cause, which may be nil.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Failure converts the error to its user-facing pair.
func (e *Error) Failure() Failure {
	return Failure{Code: e.Code, Message: e.Message}
}

// CodeOf returns the payment code carried by err, or "" if there is none.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Failure is the code/message pair shown to the user after a failed payment.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Rejection is a confirmation backend's error body. Either field may be
// missing.
type Rejection struct {
	Code    *string `json:"code,omitempty"`
	Message *string `json:"message,omitempty"`
}

// Normalize fills missing fields with the CONFIRM_FAILED defaults. Empty
// strings count as missing.
func (r Rejection) Normalize() Failure {
	f := Failure{Code: CodeConfirmFailed, Message: MessageConfirmFailed}
	if r.Code != nil && *r.Code != "" {
		f.Code = *r.Code
	}
	if r.Message != nil && *r.Message != "" {
		f.Message = *r.Message
	}
	return f
}

// RejectionError is returned by a Confirmer when the backend refused the
// payment.
type RejectionError struct {
	Rejection Rejection
}

func (e *RejectionError) Error() string {
	f := e.Rejection.Normalize()
	return "confirmation rejected: " + f.Code + ": " + f.Message
}

// FailureOf maps any confirmation error to a Failure. Unstructured errors
// collapse to the defaults so transport details never reach the user.
func FailureOf(err error) Failure {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Rejection.Normalize()
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Failure()
	}
	return Rejection{}.Normalize()
}
