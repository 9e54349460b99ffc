package bucket

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// BenchmarkAllow measures single-threaded throughput
func BenchmarkAllow(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	for b.Loop() {
		_, _ = store.Allow(ctx, "bench-key", 1000, time.Minute)
	}
}

// BenchmarkAllow_Parallel measures concurrent throughput on one hot key
func BenchmarkAllow_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.Allow(ctx, "bench-key", 1000, time.Minute)
		}
	})
}

// BenchmarkAllow_HighCardinality_Parallel measures many distinct client keys
func BenchmarkAllow_HighCardinality_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			key := fmt.Sprintf("rl:global:10.0.%d.%d", (i/256)%256, i%256)
			_, _ = store.Allow(ctx, key, 100, time.Minute)
		}
	})
}
