// Package metrics exports ingestion statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Metrics observes a store and keeps its collectors up to date
type Metrics struct {
	ingested      prometheus.Counter
	rejected      *prometheus.CounterVec
	items         prometheus.Counter
	invoices      prometheus.Gauge
	totalAmount   prometheus.Gauge
	taxPercentage prometheus.Gauge
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nfe_documents_ingested_total",
			Help: "Total number of NFe documents added to the dataset.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfe_documents_rejected_total",
			Help: "Total number of NFe documents rejected, by error kind.",
		}, []string{"kind"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nfe_line_items_ingested_total",
			Help: "Total number of line items added to the dataset.",
		}),
		invoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nfe_store_invoices",
			Help: "Number of invoices currently stored.",
		}),
		totalAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nfe_store_total_amount",
			Help: "Sum of invoice totals currently stored.",
		}),
		taxPercentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nfe_store_tax_percentage",
			Help: "Total tax as a percentage of the total amount.",
		}),
	}

	for _, c := range []prometheus.Collector{m.ingested, m.rejected, m.items, m.invoices, m.totalAmount, m.taxPercentage} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Ingested records a committed invoice
func (m *Metrics) Ingested(_ *model.Invoice, items []model.LineItem, summary *model.Summary) {
	m.ingested.Inc()
	m.items.Add(float64(len(items)))
	m.setDataset(summary)
}

// Loaded sets the dataset gauges after a reload from durable storage
func (m *Metrics) Loaded(summary *model.Summary) {
	m.setDataset(summary)
}

func (m *Metrics) setDataset(summary *model.Summary) {
	m.invoices.Set(float64(summary.InvoiceCount))
	m.totalAmount.Set(summary.TotalAmount.InexactFloat64())
	m.taxPercentage.Set(summary.TaxPercentage.InexactFloat64())
}

// Rejected records a document that was not added
func (m *Metrics) Rejected(kind string) {
	m.rejected.WithLabelValues(kind).Inc()
}

// Cleared resets the dataset gauges
func (m *Metrics) Cleared() {
	m.invoices.Set(0)
	m.totalAmount.Set(0)
	m.taxPercentage.Set(0)
}
