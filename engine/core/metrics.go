package core

import (
	"sync/atomic"
	"time"
)

// BakeMetrics counts the outcome of every file visited by a bake run.
// Counters are updated from worker goroutines, so they are atomic.
type BakeMetrics struct {
	Textures atomic.Uint64
	Meshes   atomic.Uint64
	Skipped  atomic.Uint64
	Failed   atomic.Uint64

	started time.Time
}

func NewBakeMetrics() *BakeMetrics {
	return &BakeMetrics{started: time.Now()}
}

func (m *BakeMetrics) Elapsed() time.Duration {
	return time.Since(m.started)
}

// Report logs the totals of the run.
func (m *BakeMetrics) Report() {
	LogInfo("bake finished in %s: %d textures, %d meshes, %d skipped, %d failed",
		m.Elapsed().Round(time.Millisecond), m.Textures.Load(), m.Meshes.Load(), m.Skipped.Load(), m.Failed.Load())
}
