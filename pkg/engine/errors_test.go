package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_MessageFormat(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewComponentError("install failed", cause).
		WithCode(ErrCodeInstallFailed).
		WithComponent("nginx")

	msg := err.Error()
	for _, part := range []string{"component", "install failed", "nginx", "permission denied"} {
		if !strings.Contains(msg, part) {
			t.Errorf("expected message to contain %q, got: %s", part, msg)
		}
	}
}

func TestError_UnwrapChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewLedgerError("write failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestError_IsMatchesKindAndCode(t *testing.T) {
	err := NewLedgerError("locked", nil).WithCode(ErrCodeLocked)

	if !errors.Is(err, &Error{Kind: ErrorKindLedger}) {
		t.Error("expected kind-only match")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindLedger, Code: ErrCodeLocked}) {
		t.Error("expected kind+code match")
	}
	if errors.Is(err, &Error{Kind: ErrorKindLedger, Code: ErrCodeCorrupt}) {
		t.Error("expected mismatched code not to match")
	}
	if errors.Is(err, &Error{Kind: ErrorKindHook}) {
		t.Error("expected mismatched kind not to match")
	}
}

func TestError_KindPredicates(t *testing.T) {
	tests := []struct {
		err  error
		want func(error) bool
	}{
		{NewRegistrationError("x", nil), IsRegistration},
		{NewComponentError("x", nil), IsComponent},
		{NewLedgerError("x", nil), IsLedger},
		{NewHookError("x", nil), IsHook},
	}

	for _, tt := range tests {
		if !tt.want(tt.err) {
			t.Errorf("predicate failed for %v", tt.err)
		}
		// Predicates must see through wrapping.
		if !tt.want(fmt.Errorf("outer: %w", tt.err)) {
			t.Errorf("predicate failed for wrapped %v", tt.err)
		}
	}

	if IsLedger(fmt.Errorf("plain")) {
		t.Error("plain errors must not match any kind")
	}
}
