package telemetry

import (
	"sync"
	"time"
)

// EntryCount is one catalog gauge sample
type EntryCount struct {
	Entry string // "database" or "table"
	Mode  string // "READ_ONLY", "READ_WRITE" or "INHERIT" for tables without override
	Count int
}

// CatalogStatsProvider reports current catalog entry counts
type CatalogStatsProvider interface {
	EntryCounts() []EntryCount
}

// MetricsCollector periodically samples the catalog and updates gauges
type MetricsCollector struct {
	provider CatalogStatsProvider
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(provider CatalogStatsProvider, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		provider: provider,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.provider == nil {
		return
	}

	for _, c := range mc.provider.EntryCounts() {
		CatalogEntries.With(c.Entry, c.Mode).Set(float64(c.Count))
	}
}
