package metrics

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects real-time operation counters for the engine.
// Trimmed from the teacher's query/insert/update/delete/transaction/cache/
// scan collector down to the counters this engine actually has: gets,
// sets, deletes, flushes, merges and bloom-filter negatives. There are no
// transactions, no page cache and no index/collection scans here, so
// those fields have no referent and are dropped.
type MetricsCollector struct {
	getsExecuted    uint64
	getsFailed      uint64
	setsExecuted    uint64
	setsFailed      uint64
	deletesExecuted uint64
	deletesFailed   uint64

	flushes uint64
	merges  uint64

	bloomNegatives uint64 // Get calls the filter short-circuited before touching any run

	startTime time.Time
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// RecordGet records a Get operation.
func (mc *MetricsCollector) RecordGet(success bool) {
	atomic.AddUint64(&mc.getsExecuted, 1)
	if !success {
		atomic.AddUint64(&mc.getsFailed, 1)
	}
}

// RecordSet records a Set operation.
func (mc *MetricsCollector) RecordSet(success bool) {
	atomic.AddUint64(&mc.setsExecuted, 1)
	if !success {
		atomic.AddUint64(&mc.setsFailed, 1)
	}
}

// RecordDelete records a Delete operation.
func (mc *MetricsCollector) RecordDelete(success bool) {
	atomic.AddUint64(&mc.deletesExecuted, 1)
	if !success {
		atomic.AddUint64(&mc.deletesFailed, 1)
	}
}

// RecordFlush records a memtable flush to a new on-disk run.
func (mc *MetricsCollector) RecordFlush() {
	atomic.AddUint64(&mc.flushes, 1)
}

// RecordMerge records a compaction of two runs into one.
func (mc *MetricsCollector) RecordMerge() {
	atomic.AddUint64(&mc.merges, 1)
}

// RecordBloomNegative records a Get the bloom filter resolved as absent
// without consulting the memtable or any run.
func (mc *MetricsCollector) RecordBloomNegative() {
	atomic.AddUint64(&mc.bloomNegatives, 1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds float64

	GetsExecuted    uint64
	GetsFailed      uint64
	SetsExecuted    uint64
	SetsFailed      uint64
	DeletesExecuted uint64
	DeletesFailed   uint64

	Flushes uint64
	Merges  uint64

	BloomNegatives uint64
}

// GetMetrics returns a snapshot of all counters.
func (mc *MetricsCollector) GetMetrics() Snapshot {
	return Snapshot{
		UptimeSeconds: time.Since(mc.startTime).Seconds(),

		GetsExecuted:    atomic.LoadUint64(&mc.getsExecuted),
		GetsFailed:      atomic.LoadUint64(&mc.getsFailed),
		SetsExecuted:    atomic.LoadUint64(&mc.setsExecuted),
		SetsFailed:      atomic.LoadUint64(&mc.setsFailed),
		DeletesExecuted: atomic.LoadUint64(&mc.deletesExecuted),
		DeletesFailed:   atomic.LoadUint64(&mc.deletesFailed),

		Flushes: atomic.LoadUint64(&mc.flushes),
		Merges:  atomic.LoadUint64(&mc.merges),

		BloomNegatives: atomic.LoadUint64(&mc.bloomNegatives),
	}
}

// Reset resets all counters to zero.
func (mc *MetricsCollector) Reset() {
	atomic.StoreUint64(&mc.getsExecuted, 0)
	atomic.StoreUint64(&mc.getsFailed, 0)
	atomic.StoreUint64(&mc.setsExecuted, 0)
	atomic.StoreUint64(&mc.setsFailed, 0)
	atomic.StoreUint64(&mc.deletesExecuted, 0)
	atomic.StoreUint64(&mc.deletesFailed, 0)

	atomic.StoreUint64(&mc.flushes, 0)
	atomic.StoreUint64(&mc.merges, 0)

	atomic.StoreUint64(&mc.bloomNegatives, 0)

	mc.startTime = time.Now()
}
