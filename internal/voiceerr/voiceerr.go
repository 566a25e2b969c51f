// Package voiceerr defines the closed set of failure kinds surfaced by the voice pipeline.
package voiceerr

import (
	"errors"
	"fmt"
)

// Kind identifies one failure category.
type Kind string

const (
	KindSecurity   Kind = "security"
	KindRateLimit  Kind = "rate_limit"
	KindValidation Kind = "validation"
	KindAudio      Kind = "audio"
)

// Error is a classified pipeline failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: KindAudio}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func Security(message string, cause error) *Error {
	return &Error{Kind: KindSecurity, Message: message, Err: cause}
}

func RateLimit(message string) *Error {
	return &Error{Kind: KindRateLimit, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Audio(message string, cause error) *Error {
	return &Error{Kind: KindAudio, Message: message, Err: cause}
}

// Sentinels for errors.Is checks by kind.
var (
	ErrSecurity   = &Error{Kind: KindSecurity}
	ErrRateLimit  = &Error{Kind: KindRateLimit}
	ErrValidation = &Error{Kind: KindValidation}
	ErrAudio      = &Error{Kind: KindAudio}
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// Classify returns err unchanged when already classified and wraps it as a
// security failure otherwise.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}
	return Security(message, err)
}

// UserMessage maps any error to the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Message
	}
	return "Something went wrong. Please try again."
}
