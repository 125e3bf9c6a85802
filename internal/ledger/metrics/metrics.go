package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the ledger module.
// Tracks the document lifecycle and account commands.
type Metrics struct {
	AccountsCreated         prometheus.Counter
	DocumentsCreated        *prometheus.CounterVec
	DocumentsInvalid        *prometheus.CounterVec
	DocumentsExecuted       *prometheus.CounterVec
	DocumentExecutionFailed *prometheus.CounterVec
	DocumentsCanceled       prometheus.Counter
	OperationDuration       *prometheus.HistogramVec
}

// New registers the ledger metrics with reg. Pass prometheus.DefaultRegisterer
// in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AccountsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		DocumentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_documents_created_total",
			Help: "Documents persisted as created, by type",
		}, []string{"type"}),
		DocumentsInvalid: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_documents_invalid_total",
			Help: "Documents rejected at creation, by type and reason",
		}, []string{"type", "reason"}),
		DocumentsExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_documents_executed_total",
			Help: "Documents executed, by type",
		}, []string{"type"}),
		DocumentExecutionFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_document_execution_failed_total",
			Help: "Execution attempts rolled back, by type and reason",
		}, []string{"type", "reason"}),
		DocumentsCanceled: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_documents_canceled_total",
			Help: "Documents canceled through their folder",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementAccountsCreated() {
	m.AccountsCreated.Inc()
}

func (m *Metrics) IncrementDocumentCreated(docType string) {
	m.DocumentsCreated.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncrementDocumentInvalid(docType, reason string) {
	m.DocumentsInvalid.WithLabelValues(docType, reason).Inc()
}

func (m *Metrics) IncrementDocumentExecuted(docType string) {
	m.DocumentsExecuted.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncrementExecutionFailed(docType, reason string) {
	m.DocumentExecutionFailed.WithLabelValues(docType, reason).Inc()
}

func (m *Metrics) AddDocumentsCanceled(n int) {
	m.DocumentsCanceled.Add(float64(n))
}

// ObserveOperation records the duration of a ledger operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
