package prometheus

import (
	"testing"
	"time"

	"github.com/Swind/go-task-engine/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("taskengine", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("pool-a", core.TaskPriorityMedium, 250*time.Millisecond)
	exporter.RecordTaskPanic("pool-a", "panic")
	exporter.RecordTaskFailed("pool-a", core.TaskPriorityHigh)
	exporter.RecordQueueDepth("pool-a", core.TaskPriorityLow, 7)
	exporter.RecordTasksDiscarded("pool-a", "cleared", 3)
	exporter.RecordTasksDiscarded("pool-a", "cleared", 0)

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("pool-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	failed := testutil.ToFloat64(exporter.taskFailedTotal.WithLabelValues("pool-a", "high"))
	if failed != 1 {
		t.Fatalf("failed total = %v, want 1", failed)
	}

	laneDepth := testutil.ToFloat64(exporter.laneDepth.WithLabelValues("pool-a", "low"))
	if laneDepth != 7 {
		t.Fatalf("lane depth = %v, want 7", laneDepth)
	}

	discarded := testutil.ToFloat64(exporter.taskDiscardedTotal.WithLabelValues("pool-a", "cleared"))
	if discarded != 3 {
		t.Fatalf("discarded total = %v, want 3", discarded)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("pool-a", "medium"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("taskengine", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("taskengine", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("pool-a", nil)
	second.RecordTaskPanic("pool-a", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("pool-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordTaskDuration("pool", core.TaskPriorityHigh, time.Second)
	exporter.RecordTaskPanic("pool", nil)
	exporter.RecordTaskFailed("pool", core.TaskPriorityHigh)
	exporter.RecordQueueDepth("pool", core.TaskPriorityHigh, 1)
	exporter.RecordTasksDiscarded("pool", "stopped", 1)
}

func TestPriorityLabel(t *testing.T) {
	tests := map[core.TaskPriority]string{
		core.TaskPriorityHigh:   "high",
		core.TaskPriorityMedium: "medium",
		core.TaskPriorityLow:    "low",
		core.TaskPriority(-1):   "unknown",
	}
	for p, want := range tests {
		if got := priorityLabel(p); got != want {
			t.Errorf("priorityLabel(%d) = %q, want %q", p, got, want)
		}
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
