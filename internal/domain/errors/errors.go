package errors

import (
	"errors"
	"fmt"
)

// Sentinels identify the machine-readable kind of every failure surfaced by the bridge.
var (
	ErrValidation         = errors.New("ValidationError")
	ErrAmountExceedsLimit = errors.New("AmountExceedsLimit")
	ErrInvalidDestination = errors.New("InvalidDestinationAddress")
	ErrDuplicateRequest   = errors.New("DuplicateRequest")
	ErrNotFound           = errors.New("RequestNotFound")
	ErrInvalidTransition  = errors.New("InvalidTransition")
	ErrAdapterUnavailable = errors.New("AdapterUnavailable")
	ErrAdapterError       = errors.New("AdapterError")
	ErrConnection         = errors.New("ConnectionError")
	ErrAuth               = errors.New("AuthError")
	ErrLedger             = errors.New("LedgerError")
)

// Validation reasons carried by ErrValidation failures.
const (
	ReasonMissingField      = "MissingField"
	ReasonNotANumber        = "NotANumber"
	ReasonNonPositiveAmount = "NonPositiveAmount"
	ReasonUnknownChain      = "UnknownChain"
	ReasonFractionalAmount  = "FractionalAmount"
	ReasonAmountOutOfRange  = "AmountOutOfRange"
)

const kindInternal = "Internal"

var kinds = []error{
	ErrValidation,
	ErrAmountExceedsLimit,
	ErrInvalidDestination,
	ErrDuplicateRequest,
	ErrNotFound,
	ErrInvalidTransition,
	ErrAdapterUnavailable,
	ErrAdapterError,
	ErrConnection,
	ErrAuth,
	ErrLedger,
}

// Error pairs a kind sentinel with a human-readable message.
type Error struct {
	Kind    error
	Reason  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// New builds an Error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind that keeps cause in its chain.
func Wrap(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation builds an ErrValidation failure with a sub-reason.
func Validation(reason, format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the machine-readable kind for err.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return kindInternal
}

// ReasonOf returns the validation sub-reason attached to err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Retryable reports whether err stems from a transient external dependency failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrAdapterUnavailable) || errors.Is(err, ErrConnection)
}
