package ingest

import "github.com/prometheus/client_golang/prometheus"

const (
	KindEvents  = "events"
	KindArtists = "artists"
)

const (
	outcomeStored  = "stored"
	outcomeSkipped = "skipped"
	outcomeDropped = "dropped"
	outcomeLinked  = "linked"
)

// Metrics counts ingested records by kind and outcome. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	records *prometheus.CounterVec
}

// NewMetrics registers the ingestion counters with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atrium",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Records processed by the ingestion pipeline, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if err := reg.Register(m.records); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) add(kind, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(kind, outcome).Add(float64(n))
}

// Counter exposes one series, for tests and run summaries.
func (m *Metrics) Counter(kind, outcome string) prometheus.Counter {
	return m.records.WithLabelValues(kind, outcome)
}
