package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
)

func TestRegistryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistryMetrics(reg)
	m.ObserveOperation("check_out", OutcomeOK, 20*time.Millisecond)
	m.ObserveOperation("check_out", "PAYMENT_FAILED", 10*time.Millisecond)
	m.ObserveOperation("check_out", "PAYMENT_FAILED", 10*time.Millisecond)
	m.AddSettledCredits(1000)
	m.AddSettledCredits(-5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "registry_operations_total", map[string]string{"operation": "check_out", "outcome": "ok"}); err != nil {
		t.Fatalf("fetch ok: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ok=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "registry_operations_total", map[string]string{"operation": "check_out", "outcome": "payment_failed"}); err != nil {
		t.Fatalf("fetch payment_failed: %v", err)
	} else if got != 2 {
		t.Fatalf("expected payment_failed=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "registry_settled_credits_total", nil); err != nil {
		t.Fatalf("fetch settled: %v", err)
	} else if got != 1000 {
		t.Fatalf("expected settled=1000, got %f", got)
	}

	mf := findMetricFamily(mfs, "registry_operation_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one duration series")
	}
	if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Fatalf("expected 3 samples, got %d", got)
	}
}

func TestOutboxMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveBatch(5 * time.Millisecond)
	m.IncPublished("stay_settled", "redis")
	m.IncFailed("stay_settled", "redis", "retry")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_published_total", map[string]string{"event_type": "stay_settled", "sink": "redis"}); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_publish_failures_total", map[string]string{"reason": "retry"}); err != nil || got != 1 {
		t.Fatalf("expected failures=1, got %f err=%v", got, err)
	}
}

func TestCronJobMetricsExportsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("ledger-audit")
	m.IncFailure("")
	m.SetSupplyDrift(-5)
	m.SetOutboxBacklog(3, 1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "job_success", map[string]string{"job": "ledger-audit"}); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "job_failure", map[string]string{"job": "unknown"}); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f err=%v", got, err)
	}
	drift := findMetricFamily(mfs, "credit_supply_drift")
	if drift == nil || drift.GetMetric()[0].GetGauge().GetValue() != -5 {
		t.Fatalf("unexpected supply drift family %v", drift)
	}
	backlog := findMetricFamily(mfs, "outbox_backlog_rows")
	if backlog == nil || len(backlog.GetMetric()) != 2 {
		t.Fatalf("expected pending and parked gauges, got %v", backlog)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var r *RegistryMetrics
	r.ObserveOperation("mint", OutcomeOK, time.Second)
	r.AddSettledCredits(10)
	NewRegistryMetrics(nil).ObserveOperation("mint", OutcomeOK, time.Second)

	var o *OutboxMetrics
	o.ObserveBatch(time.Second)
	o.IncPublished("x", "log")
	NewOutboxMetrics(nil).IncFailed("x", "log", "retry")

	var c *CronJobMetrics
	c.IncSuccess("x")
	c.SetSupplyDrift(1)
	NewCronJobMetrics(nil).SetOutboxBacklog(1, 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, label := range pairs {
			if label.GetName() == name && label.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestOutcome(t *testing.T) {
	if got := Outcome(nil); got != "ok" {
		t.Fatalf("expected ok, got %s", got)
	}
	if got := Outcome(pkgerrors.New(pkgerrors.CodeWrongState, "nope")); got != "wrong_state" {
		t.Fatalf("expected wrong_state, got %s", got)
	}
	if got := Outcome(fmt.Errorf("db down")); got != "internal_error" {
		t.Fatalf("expected internal_error, got %s", got)
	}
}
