package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

// statusErr mimics an upstream error carrying an HTTP status.
type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("upstream returned %d", e.status) }
func (e *statusErr) HTTPStatus() int { return e.status }

// timeoutErr mimics a net.Error timeout.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_Statuses(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{429, KindRateLimited},
		{502, KindTransient},
		{503, KindTransient},
		{504, KindTransient},
		{400, KindFatal},
		{401, KindFatal},
		{403, KindFatal},
		{404, KindFatal},
		{422, KindFatal},
		{500, KindFatal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := Classify(&statusErr{status: tt.status})
			kind, ok := KindOf(err)
			if !ok {
				t.Fatalf("Classify() produced unclassified error %v", err)
			}
			if kind != tt.want {
				t.Errorf("KindOf = %v, want %v", kind, tt.want)
			}
		})
	}
}

func TestClassify_WrappedStatus(t *testing.T) {
	err := Classify(fmt.Errorf("get_range: %w", &statusErr{status: 429}))
	if kind, _ := KindOf(err); kind != KindRateLimited {
		t.Errorf("wrapped 429 classified as %v, want rate_limited", kind)
	}
}

func TestClassify_Timeouts(t *testing.T) {
	if kind, _ := KindOf(Classify(timeoutErr{})); kind != KindTransient {
		t.Error("net timeout should classify as transient")
	}
	if kind, _ := KindOf(Classify(context.DeadlineExceeded)); kind != KindTransient {
		t.Error("deadline exceeded should classify as transient")
	}
}

func TestClassify_ConnectionErrors(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE} {
		err := Classify(fmt.Errorf("dial gateway: %w", errno))
		if kind, _ := KindOf(err); kind != KindTransient {
			t.Errorf("%v should classify as transient", errno)
		}
	}
}

func TestClassify_CancellationPassesThrough(t *testing.T) {
	err := Classify(context.Canceled)
	if _, ok := KindOf(err); ok {
		t.Error("context.Canceled should not be classified")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Classify() = %v, want context.Canceled", err)
	}
}

func TestClassify_UnknownIsFatal(t *testing.T) {
	err := Classify(errors.New("unexpected payload"))
	if kind, _ := KindOf(err); kind != KindFatal {
		t.Errorf("unknown error classified as %v, want fatal", kind)
	}
	if IsRetryable(err) {
		t.Error("unknown errors must not be retryable")
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	orig := &TransientError{Err: errors.New("blip")}
	if got := Classify(orig); got != error(orig) {
		t.Errorf("Classify() rewrapped an already classified error: %v", got)
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}
