// Package metrics exposes the pipeline run counters on the default
// Prometheus registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "records_accepted_total",
			Help:      "Input records that passed validation, by record kind.",
		},
		[]string{"kind"},
	)
	RecordsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "records_rejected_total",
			Help:      "Input records routed to the rejected artifact, by record kind.",
		},
		[]string{"kind"},
	)
	OutliersFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "outliers_flagged_total",
			Help:      "Readings stored with the outlier flag set.",
		},
	)
	ReadingsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "readings_written_total",
			Help:      "Normalized readings upserted into the canonical store.",
		},
	)
	SummaryBucketsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "summary_buckets_upserted_total",
			Help:      "Hourly summary rows written by the aggregator.",
		},
	)
	TrendsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalsight",
			Name:      "trends_classified_total",
			Help:      "Trend classifications written, by trend category.",
		},
		[]string{"trend"},
	)
)

func init() {
	prometheus.MustRegister(
		RecordsAccepted,
		RecordsRejected,
		OutliersFlagged,
		ReadingsWritten,
		SummaryBucketsUpserted,
		TrendsClassified,
	)
}
