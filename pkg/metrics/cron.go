package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records scheduled audit runs and the figures they observe.
type CronJobMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	supplyDrift   prometheus.Gauge
	outboxBacklog *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful cron job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed cron job executions.",
	}, []string{"job"})
	supplyDrift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "credit_supply_drift",
		Help: "Total supply minus the sum of balances at the last ledger audit.",
	})
	outboxBacklog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbox_backlog_rows",
		Help: "Undelivered outbox rows by status at the last backlog audit.",
	}, []string{"status"})
	reg.MustRegister(duration, success, failure, supplyDrift, outboxBacklog)
	return &CronJobMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		supplyDrift:   supplyDrift,
		outboxBacklog: outboxBacklog,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func (c *CronJobMetrics) SetSupplyDrift(drift int64) {
	if c == nil || c.supplyDrift == nil {
		return
	}
	c.supplyDrift.Set(float64(drift))
}

func (c *CronJobMetrics) SetOutboxBacklog(pending, parked int64) {
	if c == nil || c.outboxBacklog == nil {
		return
	}
	c.outboxBacklog.WithLabelValues("pending").Set(float64(pending))
	c.outboxBacklog.WithLabelValues("parked").Set(float64(parked))
}
