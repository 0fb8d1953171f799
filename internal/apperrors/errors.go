package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	// KindValidation covers client-side rejections raised before any
	// network call (wrong file extension, missing required field).
	KindValidation Kind = "validation"
	// KindSubmission covers failures of the initial submit request.
	KindSubmission Kind = "submission"
	// KindPoll covers transport failures during a status check.
	KindPoll Kind = "poll"
	// KindJob covers server-reported job failures (status "failed");
	// the server's error message is preserved as the safe message.
	KindJob Kind = "job"
	// KindAuth covers missing/expired credentials (401/403).
	KindAuth Kind = "auth"
	// KindTransient covers upstream 5xx responses.
	KindTransient Kind = "transient"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Submission rejected before upload."
	case KindSubmission:
		return "Job submission failed."
	case KindPoll:
		return "Status check failed."
	case KindJob:
		return "Server-side job failed."
	case KindAuth:
		return "Authentication failed. Please verify your API token."
	case KindTransient:
		return "Temporary server error. Please try again."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func Submission(err error) error {
	return New(KindSubmission, "", err)
}

func Poll(err error) error {
	return New(KindPoll, "", err)
}

// JobFailure wraps a server-reported failure, keeping the server's
// error message verbatim for display.
func JobFailure(message string) error {
	return New(KindJob, message, nil)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsValidation reports whether the error was raised locally, before
// any network request was made.
func IsValidation(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindValidation
}

func IsJobFailure(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindJob
}

func IsAuth(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindAuth
}
