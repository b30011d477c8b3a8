package payment

import (
	"context"
	"errors"
	"fmt"

	"taquilla-cli/service"
)

const (
	GenericErrorMessage  = "Error de conexión. Por favor, intenta nuevamente."
	RejectedFallbackText = "No se pudo procesar el pago."
)

type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
	KindServer
	KindDecode
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	case KindRejected:
		return "rejected"
	default:
		return "transport"
	}
}

// Error is the single shape every failed payment call is reduced to. Message
// is safe to show to the buyer.
type Error struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var payErr *Error
	if errors.As(err, &payErr) && payErr.Message != "" {
		return payErr.Message
	}
	return GenericErrorMessage
}

// IsRejected reports whether the server refused the payment on business
// grounds, as opposed to the call failing.
func IsRejected(err error) bool {
	var payErr *Error
	return errors.As(err, &payErr) && payErr.Kind == KindRejected
}

func normalize(op string, err error) *Error {
	var apiErr *service.APIError
	var decodeErr *service.DecodeError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return &Error{Op: op, Kind: KindRejected, Message: apiErr.Message, Err: err}
		}
		return &Error{Op: op, Kind: KindServer, Message: GenericErrorMessage, Err: err}
	case errors.As(err, &decodeErr):
		return &Error{Op: op, Kind: KindDecode, Message: GenericErrorMessage, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Kind: KindTimeout, Message: GenericErrorMessage, Err: err}
	default:
		return &Error{Op: op, Kind: KindTransport, Message: GenericErrorMessage, Err: err}
	}
}

func rejected(op, message string) *Error {
	if message == "" {
		message = RejectedFallbackText
	}
	return &Error{Op: op, Kind: KindRejected, Message: message}
}
