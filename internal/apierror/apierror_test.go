package apierror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		fatal     bool
	}{
		{
			name:      "configuration error is fatal",
			err:       &Configuration{Key: "Security Reader", Msg: "role template not found"},
			transient: false,
			fatal:     true,
		},
		{
			name:      "permission error is fatal",
			err:       &Permission{Operation: "POST /groups", Err: errors.New("status 403")},
			transient: false,
			fatal:     true,
		},
		{
			name:      "transient error is retryable",
			err:       &Transient{Operation: "GET /users", Err: errors.New("status 503")},
			transient: true,
			fatal:     false,
		},
		{
			name:      "verification mismatch is neither",
			err:       &Verification{Stage: "resource registration", Key: "Managed Services Operators"},
			transient: false,
			fatal:     false,
		},
		{
			name:      "wrapped transient keeps its class",
			err:       fmt.Errorf("stage failed: %w", &Transient{Operation: "GET /users", Err: errors.New("timeout")}),
			transient: true,
			fatal:     false,
		},
		{
			name:      "plain error is neither",
			err:       errors.New("boom"),
			transient: false,
			fatal:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.transient, IsTransient(tt.err))
			require.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestNotFoundWrapping(t *testing.T) {
	err := fmt.Errorf("user alice@example.com: %w", ErrNotFound)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, IsTransient(err))
	require.False(t, IsFatal(err))
}

func TestErrorMessagesNameTheKey(t *testing.T) {
	err := &Configuration{Key: "Helpdesk Operator", Msg: "directory role template not found"}
	require.Contains(t, err.Error(), "Helpdesk Operator")

	v := &Verification{Stage: "resource registration", Key: "ops-group"}
	require.Contains(t, v.Error(), "ops-group")
	require.Contains(t, v.Error(), "resource registration")
}
