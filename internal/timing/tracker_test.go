package timing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartEndRecordsSample(t *testing.T) {
	tracker := NewTracker()

	ctx := tracker.StartTiming("crop")
	tracker.EndTiming(ctx)

	assert.Len(t, tracker.GetTimings("crop"), 1)
	assert.Equal(t, []string{"crop"}, tracker.Operations())

	// Contexts without timing info are ignored.
	tracker.EndTiming(context.Background())
	assert.Len(t, tracker.GetTimings("crop"), 1)
}

func TestAverageAndLast(t *testing.T) {
	tracker := NewTracker()
	tracker.Record("transform", 10*time.Millisecond)
	tracker.Record("transform", 30*time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, tracker.GetAverageTime("transform"))
	assert.Equal(t, 30*time.Millisecond, tracker.Last("transform"))
	assert.Zero(t, tracker.GetAverageTime("missing"))
	assert.Equal(t, map[string]interface{}{"transform_ms": 20.0}, tracker.Summary())
}

func TestHistoryIsBounded(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < DefaultHistory+10; i++ {
		tracker.Record("composite", time.Duration(i))
	}

	samples := tracker.GetTimings("composite")
	assert.Len(t, samples, DefaultHistory)
	assert.Equal(t, time.Duration(10), samples[0])
}

func TestDisabledAndReset(t *testing.T) {
	tracker := NewTracker()
	tracker.SetEnabled(false)
	tracker.EndTiming(tracker.StartTiming("outline"))
	tracker.Record("outline", time.Second)
	assert.Empty(t, tracker.Operations())

	tracker.SetEnabled(true)
	tracker.Record("a", time.Second)
	tracker.Record("b", time.Second)
	tracker.Reset("a")
	assert.Equal(t, []string{"b"}, tracker.Operations())
	tracker.Reset("")
	assert.Empty(t, tracker.Operations())
}
