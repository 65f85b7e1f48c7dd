// Package timing records per operation durations.
package timing

import (
	"context"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

// DefaultHistory bounds the samples kept per operation.
const DefaultHistory = 128

type Info struct {
	Operation string
	StartTime time.Time
}

type Tracker struct {
	timings map[string][]time.Duration
	history int
	mu      sync.RWMutex
	enabled bool
}

func NewTracker() *Tracker {
	return &Tracker{
		timings: make(map[string][]time.Duration),
		history: DefaultHistory,
		enabled: true,
	}
}

// StartTiming returns a context carrying the start time of operation. Pass
// it to EndTiming when the operation completes.
func (tt *Tracker) StartTiming(operation string) context.Context {
	if !tt.isEnabled() {
		return context.Background()
	}

	return context.WithValue(context.Background(), contextKey{}, Info{
		Operation: operation,
		StartTime: time.Now(),
	})
}

func (tt *Tracker) EndTiming(ctx context.Context) {
	if ctx == nil {
		return
	}

	info, ok := ctx.Value(contextKey{}).(Info)
	if !ok {
		return
	}

	tt.Record(info.Operation, time.Since(info.StartTime))
}

// Record adds a sample directly. The oldest sample is dropped once the
// history is full.
func (tt *Tracker) Record(operation string, d time.Duration) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if !tt.enabled {
		return
	}

	samples := append(tt.timings[operation], d)
	if len(samples) > tt.history {
		samples = samples[len(samples)-tt.history:]
	}
	tt.timings[operation] = samples
}

func (tt *Tracker) GetTimings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

func (tt *Tracker) GetAverageTime(operation string) time.Duration {
	timings := tt.GetTimings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}

	return total / time.Duration(len(timings))
}

// Last is the most recent sample for operation.
func (tt *Tracker) Last(operation string) time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if len(timings) == 0 {
		return 0
	}
	return timings[len(timings)-1]
}

// Operations lists every operation with at least one sample, sorted.
func (tt *Tracker) Operations() []string {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	ops := make([]string, 0, len(tt.timings))
	for op := range tt.timings {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Summary maps each operation to its average duration in milliseconds,
// ready to be attached to a log line.
func (tt *Tracker) Summary() map[string]interface{} {
	summary := make(map[string]interface{})
	for _, op := range tt.Operations() {
		summary[op+"_ms"] = float64(tt.GetAverageTime(op).Microseconds()) / 1000
	}
	return summary
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

func (tt *Tracker) isEnabled() bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.enabled
}

// Reset drops the samples of operation, or of every operation when it is
// empty.
func (tt *Tracker) Reset(operation string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.timings = make(map[string][]time.Duration)
	} else {
		delete(tt.timings, operation)
	}
}
