package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkRetryer_Do_Success measures happy path execution.
func BenchmarkRetryer_Do_Success(b *testing.B) {
	r, err := NewRetryer(DefaultPolicy())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Do(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkRetryer_Backoff measures delay computation with jitter.
func BenchmarkRetryer_Backoff(b *testing.B) {
	r, err := NewRetryer(Policy{
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		MaxDelay:       time.Minute,
		JitterFraction: 0.25,
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.backoff(i%5 + 1)
	}
}

// BenchmarkClassify measures classification of a status-carrying error.
func BenchmarkClassify(b *testing.B) {
	err := &statusErr{status: 503}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Classify(err)
	}
}
