package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrBrokerSaturated, "publish queue full").
		WithCause(root).
		WithRetryable(true)

	if GetErrorCode(err) != ErrBrokerSaturated {
		t.Fatalf("expected code %s, got %s", ErrBrokerSaturated, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_PlainHelpers(t *testing.T) {
	t.Parallel()

	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are never retryable")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors have no code")
	}

	err := NewErrorf(ErrInvalidTimeout, "timeout must be non-negative, got %v", -1)
	if err.Error() != "[INVALID_TIMEOUT] timeout must be non-negative, got -1" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}
