package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	StockResultApplied  = "applied"
	StockResultClamped  = "clamped"
	StockResultSkipped  = "skipped"
	StockResultConflict = "conflict"
)

// StockMetrics tracks catalog counter adjustments made by the order flow.
type StockMetrics struct {
	adjustments    *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	m := &StockMetrics{
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Stock adjustments by mode, item kind and result.",
		}, []string{"mode", "kind", "result"}),
		reconciliation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reconciliation_warnings_total",
			Help:      "Adjustments that skipped a missing catalog row or clamped a counter at zero.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.adjustments, m.reconciliation)
	return m
}

func (m *StockMetrics) IncAdjustment(mode, kind, result string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(mode), normalizeLabel(kind), result).Inc()
}

func (m *StockMetrics) IncReconciliationWarning(kind string) {
	if m == nil || m.reconciliation == nil {
		return
	}
	m.reconciliation.WithLabelValues(normalizeLabel(kind)).Inc()
}
