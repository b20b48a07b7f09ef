package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrNotWorker", ErrNotWorker, "not called from a worker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("got %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestIsConfiguration(t *testing.T) {
	wrapped := fmt.Errorf("taskscheduler: fiber pool size must be positive: %w", ErrInvalidConfiguration)
	if !IsConfiguration(wrapped) {
		t.Error("wrapped configuration error not recognized")
	}
	if IsConfiguration(ErrNotWorker) {
		t.Error("ErrNotWorker misclassified as configuration error")
	}
	if IsConfiguration(errors.New("other")) {
		t.Error("unrelated error misclassified as configuration error")
	}
}
