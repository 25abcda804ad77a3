package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestImportMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImportMetrics(reg)

	m.IncOutcome("created", 3)
	m.IncOutcome("errored", 1)
	m.IncOutcome("created", 0)
	m.ObserveBatch("acme", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "import_records_total", "outcome", "created"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 3 {
		t.Fatalf("expected created=3, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "import_records_total", "outcome", "errored"); err != nil {
		t.Fatalf("fetch errored: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errored=1, got %f", got)
	}
}

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "variant-explosion"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_failure", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewImportMetrics(nil)
	m.IncOutcome("created", 1)
	m.ObserveBatch("acme", time.Second)

	c := NewCronJobMetrics(nil)
	c.IncSuccess("job")
	c.IncFailure("job")
	c.ObserveDuration("job", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("label %s=%s not found in %q", label, value, name)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
