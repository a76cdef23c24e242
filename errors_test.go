package hstreamenv_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/giantswarm/hstreamenv"
)

// TestPublicErrorConstants verifies that every exported error constant:
//   - implements the error interface (Error() returns a non-empty string)
//   - matches itself via errors.Is, also when wrapped
//   - does not match a different error constant
func TestPublicErrorConstants(t *testing.T) {
	t.Parallel()

	allErrors := map[string]error{
		"ErrBinding":       hstreamenv.ErrBinding,
		"ErrProvisioning":  hstreamenv.ErrProvisioning,
		"ErrSessionClosed": hstreamenv.ErrSessionClosed,
		"ErrTeardown":      hstreamenv.ErrTeardown,
	}

	for name, sentinel := range allErrors {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if msg := sentinel.Error(); msg == "" {
				t.Errorf("%s.Error() returned empty string", name)
			}
			if !errors.Is(fmt.Errorf("wrapping: %w", sentinel), sentinel) {
				t.Errorf("errors.Is(wrapped %s) = false, want true", name)
			}
			for other, otherErr := range allErrors {
				if other != name && errors.Is(sentinel, otherErr) {
					t.Errorf("errors.Is(%s, %s) = true, want false", name, other)
				}
			}
		})
	}
}

// TestStructuredErrors verifies that each structured error matches its
// sentinel and unwraps to its cause.
func TestStructuredErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	tests := map[string]struct {
		err      error
		sentinel error
		wantMsg  string
	}{
		"provisioning broker": {
			err:      &hstreamenv.ProvisioningError{Role: "hserver", Index: 2, Err: cause},
			sentinel: hstreamenv.ErrProvisioning,
			wantMsg:  "provision hserver-2: boom",
		},
		"provisioning client": {
			err:      &hstreamenv.ProvisioningError{Role: hstreamenv.RoleClient, Err: cause},
			sentinel: hstreamenv.ErrProvisioning,
			wantMsg:  "provision client: boom",
		},
		"binding": {
			err:      &hstreamenv.BindingError{Artifact: "client", Err: cause},
			sentinel: hstreamenv.ErrBinding,
		},
		"teardown": {
			err:      &hstreamenv.TeardownError{Step: "stop", Node: "zk", Err: cause},
			sentinel: hstreamenv.ErrTeardown,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			wrapped := fmt.Errorf("outer: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tc.sentinel)
			}
			if !errors.Is(wrapped, cause) {
				t.Errorf("errors.Is(%v, cause) = false", wrapped)
			}
			if tc.wantMsg != "" && tc.err.Error() != tc.wantMsg {
				t.Errorf("Error() = %q, want %q", tc.err.Error(), tc.wantMsg)
			}
		})
	}
}
