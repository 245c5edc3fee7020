package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
)

// OutcomeOK labels a successful operation. Failures are labelled with their
// lower-cased error code.
const OutcomeOK = "ok"

// RegistryMetrics records registry operation outcomes and settled credits.
type RegistryMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	settled    prometheus.Counter
}

// NewRegistryMetrics registers the registry metrics on the provided registerer.
func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	if reg == nil {
		return &RegistryMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_operations_total",
		Help: "Registry operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registry_operation_duration_seconds",
		Help:    "Duration of registry operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_settled_credits_total",
		Help: "Credits moved from guests to owners by completed stays.",
	})
	reg.MustRegister(operations, duration, settled)
	return &RegistryMetrics{
		operations: operations,
		duration:   duration,
		settled:    settled,
	}
}

// ObserveOperation records one operation call.
func (m *RegistryMetrics) ObserveOperation(operation, outcome string, d time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	m.operations.WithLabelValues(op, normalizeLabel(strings.ToLower(outcome))).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddSettledCredits adds amount to the settled credit total.
func (m *RegistryMetrics) AddSettledCredits(amount int64) {
	if m == nil || m.settled == nil || amount <= 0 {
		return
	}
	m.settled.Add(float64(amount))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Outcome maps an operation error to its outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return strings.ToLower(string(pkgerrors.CodeInternal))
}
