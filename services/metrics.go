package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для метрик
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// Metrics счетчики операций со складом
type Metrics struct {
	Operations *prometheus.CounterVec
	Imports    *prometheus.CounterVec
}

// NewMetrics создает и регистрирует счетчики в переданном реестре
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bominventory",
			Name:      "stock_operations_total",
			Help:      "Stock reconciliation operations by type and result.",
		}, []string{"operation", "result"}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bominventory",
			Name:      "import_rows_total",
			Help:      "Bulk import rows by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Imports)
	}
	return m
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultRejected
		var persistence *PersistenceError
		if errors.As(err, &persistence) {
			result = resultError
		}
	}
	m.Operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) importRow(kind, outcome string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(kind, outcome).Inc()
}
