// Package memory keeps an account of long lived mats so leaks show up in
// the shutdown log.
package memory

import (
	"fmt"
	"sync"
	"time"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/opencv/safe"
)

type AllocationRecord struct {
	Mat       *safe.Mat
	Tag       string
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PeakBytes      int64
}

// InUse is the number of bytes held by tracked mats.
func (s Stats) InUse() int64 {
	return s.TotalAllocated - s.TotalReleased
}

type Manager struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.RWMutex
	stats       Stats
	logger      logger.Logger
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NoOpLogger{}
	}

	return &Manager{
		allocations: make(map[uint64]*AllocationRecord),
		logger:      log,
	}
}

// Track registers mat under tag. Tracking the same mat twice is a no-op.
func (m *Manager) Track(mat *safe.Mat, tag string) {
	if mat == nil || !mat.IsValid() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.allocations[mat.ID()]; exists {
		return
	}

	mat.SetTag(tag)
	size := mat.SizeBytes()
	m.allocations[mat.ID()] = &AllocationRecord{
		Mat:       mat,
		Tag:       tag,
		CreatedAt: time.Now(),
		Size:      size,
	}

	m.stats.TotalAllocated += size
	m.stats.ActiveMats++
	m.stats.PeakBytes = max(m.stats.PeakBytes, m.stats.InUse())

	m.logger.Debug("MemoryManager", "tracking Mat", map[string]interface{}{
		"id":    mat.ID(),
		"tag":   tag,
		"bytes": size,
	})
}

// Release closes mat and removes it from the account. Untracked mats are
// still closed.
func (m *Manager) Release(mat *safe.Mat) {
	if mat == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.release(mat)
}

func (m *Manager) release(mat *safe.Mat) {
	id := mat.ID()
	record, exists := m.allocations[id]
	if !exists {
		if mat.IsValid() {
			m.logger.Warning("MemoryManager", "releasing untracked Mat", map[string]interface{}{
				"id": id,
			})
		}
		mat.Close()
		return
	}

	mat.Close()
	delete(m.allocations, id)
	m.stats.TotalReleased += record.Size
	m.stats.ActiveMats--
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Active lists the tags of the mats still tracked.
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tags := make([]string, 0, len(m.allocations))
	for _, record := range m.allocations {
		tags = append(tags, record.Tag)
	}
	return tags
}

// Cleanup closes every tracked Mat and logs the final account.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	matCount := 0
	for _, record := range m.allocations {
		m.release(record.Mat)
		matCount++
	}

	m.logger.Info("MemoryManager", fmt.Sprintf("cleaned up %d Mats", matCount), map[string]interface{}{
		"total_allocated": m.stats.TotalAllocated,
		"total_released":  m.stats.TotalReleased,
		"peak_bytes":      m.stats.PeakBytes,
	})
}
