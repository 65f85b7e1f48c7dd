package app

import (
	"context"
	"runtime"
	"time"

	"tracing-overlay/internal/gui"
	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/opencv/memory"
	"tracing-overlay/internal/pipeline"
	"tracing-overlay/internal/shutdown"
	"tracing-overlay/internal/timing"
)

const MonitorInterval = 30 * time.Second

// Lifecycle tears the application down in reverse dependency order:
// GUI, then coordinator (source and latest render), then Mat accounting.
type Lifecycle struct {
	shutdown      *shutdown.Manager
	memoryManager *memory.Manager
	timing        *timing.Tracker
	logger        logger.Logger
}

func NewLifecycle(mm *memory.Manager, coord *pipeline.Coordinator, gm *gui.Manager, tracker *timing.Tracker, log logger.Logger) *Lifecycle {
	l := &Lifecycle{
		shutdown:      shutdown.NewManager(log),
		memoryManager: mm,
		timing:        tracker,
		logger:        log,
	}

	l.shutdown.Register("memory", shutdown.Func(func() {
		l.logMetrics("final")
		mm.Cleanup()
	}))
	l.shutdown.Register("coordinator", shutdown.Func(coord.Close))
	if gm != nil {
		l.shutdown.Register("gui", gm)
	}

	return l
}

// Watch shuts down when ctx ends, calling quit first.
func (l *Lifecycle) Watch(ctx context.Context, quit func()) {
	l.shutdown.Watch(ctx, quit)
}

func (l *Lifecycle) Shutdown() {
	l.shutdown.Shutdown()
}

func (l *Lifecycle) Done() <-chan struct{} {
	return l.shutdown.Done()
}

// StartMonitoring logs Mat accounting and stage timings every interval
// until shutdown.
func (l *Lifecycle) StartMonitoring(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.logMetrics("periodic")
			case <-l.shutdown.Done():
				return
			}
		}
	}()
}

func (l *Lifecycle) logMetrics(kind string) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := l.memoryManager.GetStats()
	fields := map[string]interface{}{
		"kind":            kind,
		"go_memory_mb":    memStats.Alloc / 1024 / 1024,
		"go_gc_runs":      memStats.NumGC,
		"mats_allocated":  stats.TotalAllocated,
		"mats_released":   stats.TotalReleased,
		"mats_active":     stats.ActiveMats,
		"mats_peak_bytes": stats.PeakBytes,
		"goroutine_count": runtime.NumGoroutine(),
	}
	if l.timing != nil {
		for op, ms := range l.timing.Summary() {
			fields[op] = ms
		}
	}

	l.logger.Debug("Lifecycle", "performance metrics", fields)
}
