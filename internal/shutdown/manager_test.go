package shutdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownReverseOrderOnce(t *testing.T) {
	m := NewManager(nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	m.Register("memory", record("memory"))
	m.Register("coordinator", record("coordinator"))
	m.Register("gui", record("gui"))

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"gui", "coordinator", "memory"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager(nil)
	m.SetTimeout(10 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	ran := false
	m.Register("after", Func(func() { ran = true }))
	m.Register("stuck", Func(func() { <-release }))

	start := time.Now()
	m.Shutdown()

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, ran)
}

func TestWatchContext(t *testing.T) {
	m := NewManager(nil)

	stopped := make(chan struct{})
	m.Register("component", Func(func() { close(stopped) }))

	signalled := false
	ctx, cancel := context.WithCancel(context.Background())
	m.Watch(ctx, func() { signalled = true })
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not run")
	}

	require.Eventually(t, func() bool {
		select {
		case <-m.Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.True(t, signalled)
}
