package common

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the signing pipeline wraps exactly
// one of these, so callers can branch with errors.Is.
var (
	ErrWrongPassword                = errors.New("wrong password")
	ErrCannotDecryptKey             = errors.New("cannot decrypt key")
	ErrCertificateOrKeyMissingInPFX = errors.New("certificate or key missing in PFX")
	ErrUnsupportedKeyFormat         = errors.New("unsupported key format")
	ErrPdfStructureNotRecognized    = errors.New("pdf structure not recognized")
	ErrSignatureTooLarge            = errors.New("signature too large")
	ErrByteRangeIntegrityViolation  = errors.New("byte range integrity violation")
	ErrInvalidPdfHeaderAfterSigning = errors.New("invalid pdf header after signing")
)

// Error carries an error kind together with a human readable cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

// NewError returns an error of the given kind.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError returns an error of the given kind caused by err.
func WrapError(kind error, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// KindOf returns the error kind of err, or nil when err carries none.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
