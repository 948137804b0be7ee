package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies a class of terminal failure. Its string form is what
// appears at the start of error messages so scripts can match on it.
type Kind string

const (
	// MissingCredentials means the authentication input is absent or incomplete.
	// Reported before any network call.
	MissingCredentials Kind = "MissingCredentials"

	// AuthenticationFailed means the token endpoint rejected the credentials
	// or stayed unreachable after the retry budget was spent.
	AuthenticationFailed Kind = "AuthenticationFailed"

	// FetchFailed means a page request exhausted its retry budget or failed
	// permanently. It may follow partial output.
	FetchFailed Kind = "FetchFailed"

	// ReadOnlyToken means a mutation was attempted with a directly supplied token.
	ReadOnlyToken Kind = "ReadOnlyToken"

	// RateLimited marks a throttled request. It is handled by the retry loop
	// and only surfaces wrapped in FetchFailed or AuthenticationFailed.
	RateLimited Kind = "RateLimited"
)

// Error implements the error interface so a Kind can be used as an
// errors.Is target.
func (k Kind) Error() string {
	return string(k)
}

// Error is a terminal failure of a given kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf returns an *Error whose cause is built from a format string.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
