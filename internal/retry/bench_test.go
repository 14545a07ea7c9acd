package retry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkBackoff_ImmediateSuccess measures overhead when the first
// dial succeeds (the common case).
func BenchmarkBackoff_ImmediateSuccess(b *testing.B) {
	bo := DefaultBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { return nil }) //nolint:errcheck
	}
}

// BenchmarkBackoff_Delay measures the delay computation alone.
func BenchmarkBackoff_Delay(b *testing.B) {
	bo := DefaultBackoff()
	for i := 0; i < b.N; i++ {
		_ = bo.Delay(i%12 + 1)
	}
}

// BenchmarkCircuitBreaker_OpenPath benchmarks rejection when open.
func BenchmarkCircuitBreaker_OpenPath(b *testing.B) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})
	cb.Execute(func() error { return fmt.Errorf("fail") }) //nolint:errcheck

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.Execute(func() error { return nil }) //nolint:errcheck
	}
}
