package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics reports Go runtime statistics as observable gauges, read
// on each collection rather than on a timer.
type RuntimeMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// RuntimeStats is one snapshot of the process
type RuntimeStats struct {
	GoRoutines    int64
	HeapAlloc     int64
	SystemMemory  int64
	GCCount       int64
	ProcessUptime time.Duration
}

// ReadRuntimeStats samples the runtime
func ReadRuntimeStats(startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     int64(mem.HeapAlloc),
		SystemMemory:  int64(mem.Sys),
		GCCount:       int64(mem.NumGC),
		ProcessUptime: time.Since(startTime),
	}
}

// NewRuntimeMetrics registers the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"process_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}

	heap, err := meter.Int64ObservableGauge(
		"process_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}

	sys, err := meter.Int64ObservableGauge(
		"process_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create system memory gauge: %w", err)
	}

	gcCount, err := meter.Int64ObservableCounter(
		"process_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}

	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	rm := &RuntimeMetrics{startTime: time.Now()}
	rm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := ReadRuntimeStats(rm.startTime)
		o.ObserveInt64(goroutines, stats.GoRoutines)
		o.ObserveInt64(heap, stats.HeapAlloc)
		o.ObserveInt64(sys, stats.SystemMemory)
		o.ObserveInt64(gcCount, stats.GCCount)
		o.ObserveFloat64(uptime, stats.ProcessUptime.Seconds())
		return nil
	}, goroutines, heap, sys, gcCount, uptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}

	return rm, nil
}

// Stop unregisters the gauges
func (rm *RuntimeMetrics) Stop() error {
	return rm.registration.Unregister()
}
