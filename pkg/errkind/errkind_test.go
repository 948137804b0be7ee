package errkind

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind op and cause",
			err:  New(FetchFailed, "list zones page 2", cause),
			want: "FetchFailed: list zones page 2: connection reset",
		},
		{
			name: "kind and cause",
			err:  New(AuthenticationFailed, "", cause),
			want: "AuthenticationFailed: connection reset",
		},
		{
			name: "kind and op",
			err:  New(ReadOnlyToken, "delete zone", nil),
			want: "ReadOnlyToken: delete zone",
		},
		{
			name: "kind only",
			err:  New(MissingCredentials, "", nil),
			want: "MissingCredentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsKind(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("failed to list records: %w", New(FetchFailed, "page 1", cause))

	if !errors.Is(err, FetchFailed) {
		t.Error("errors.Is(err, FetchFailed) = false, want true")
	}
	if errors.Is(err, AuthenticationFailed) {
		t.Error("errors.Is(err, AuthenticationFailed) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("cause is not reachable through the chain")
	}
	if got := KindOf(err); got != FetchFailed {
		t.Errorf("KindOf() = %q, want %q", got, FetchFailed)
	}
	if got := KindOf(cause); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(MissingCredentials, "resolve", "username set but %s is empty", "password")
	if !strings.HasPrefix(err.Error(), "MissingCredentials: resolve: ") {
		t.Errorf("Error() = %q, want MissingCredentials prefix", err.Error())
	}
}
