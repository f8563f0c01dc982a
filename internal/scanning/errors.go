package scanning

import (
	"errors"
	"fmt"
)

// Sentinel kinds for extraction failures. Match with errors.Is.
var (
	// ErrInvalidDate indicates the response carried no parseable date.
	ErrInvalidDate = errors.New("invalid or missing date")
	// ErrInvalidAmount indicates the response carried no positive amount.
	ErrInvalidAmount = errors.New("invalid or missing amount")
	// ErrMissingProvider indicates the provider name was empty.
	ErrMissingProvider = errors.New("missing provider name")
	// ErrUnparsableResponse indicates no JSON payload could be located.
	ErrUnparsableResponse = errors.New("no structured payload in response")
	// ErrServiceUnavailable indicates a network or provider failure.
	ErrServiceUnavailable = errors.New("scanning service unavailable")
)

// ExtractionError reports why a receipt could not be turned into a
// ReceiptData. Kind is one of the sentinel errors above. Raw holds the
// model's reply, when one was received, for operator diagnosis.
type ExtractionError struct {
	Kind error
	Raw  string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *ExtractionError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// serviceUnavailable wraps a transport or provider failure.
func serviceUnavailable(err error) *ExtractionError {
	return &ExtractionError{Kind: ErrServiceUnavailable, Err: err}
}
