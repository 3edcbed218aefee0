package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsistencyMetrics содержит метрики движка согласованности производных значений.
type ConsistencyMetrics struct {
	// Счётчики запусков распространения по триггерам
	propagationRuns *prometheus.CounterVec

	// Счётчики затронутых сущностей
	linesRecomputed  prometheus.Counter
	ordersRecomputed prometheus.Counter
	frozenSkipped    prometheus.Counter

	// Счётчик внутренних нарушений согласованности
	violations prometheus.Counter

	// Гистограмма времени распространения
	propagationDuration *prometheus.HistogramVec
}

// NewConsistencyMetrics создаёт метрики движка в default registry.
func NewConsistencyMetrics() *ConsistencyMetrics {
	return newConsistencyMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newConsistencyMetricsWithRegisterer(registerer prometheus.Registerer) *ConsistencyMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ConsistencyMetrics{
		propagationRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "resto_propagation_runs_total",
			Help: "Total number of consistency propagation runs grouped by trigger",
		}, []string{"trigger"}),
		linesRecomputed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "resto_lines_recomputed_total",
			Help: "Total number of order lines whose price snapshot was recomputed",
		}),
		ordersRecomputed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "resto_orders_recomputed_total",
			Help: "Total number of order totals recomputed",
		}),
		frozenSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "resto_frozen_orders_skipped_total",
			Help: "Total number of closed orders skipped by propagation",
		}),
		violations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "resto_consistency_violations_total",
			Help: "Total number of detected order total reconciliation failures",
		}),
		propagationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "resto_propagation_duration_seconds",
			Help:    "Duration of consistency propagation runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"trigger"}),
	}
}

// RecordPropagationRun увеличивает счётчик запусков для триггера.
func (m *ConsistencyMetrics) RecordPropagationRun(trigger string) {
	m.propagationRuns.WithLabelValues(trigger).Inc()
}

// RecordLinesRecomputed учитывает количество пересчитанных позиций.
func (m *ConsistencyMetrics) RecordLinesRecomputed(n int) {
	if n > 0 {
		m.linesRecomputed.Add(float64(n))
	}
}

// RecordOrderRecomputed увеличивает счётчик пересчитанных итогов.
func (m *ConsistencyMetrics) RecordOrderRecomputed() {
	m.ordersRecomputed.Inc()
}

// RecordFrozenSkipped увеличивает счётчик пропущенных закрытых заказов.
func (m *ConsistencyMetrics) RecordFrozenSkipped() {
	m.frozenSkipped.Inc()
}

// RecordViolation увеличивает счётчик нарушений согласованности.
func (m *ConsistencyMetrics) RecordViolation() {
	m.violations.Inc()
}

// RecordPropagationDuration записывает время распространения для триггера.
func (m *ConsistencyMetrics) RecordPropagationDuration(trigger string, duration time.Duration) {
	m.propagationDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
