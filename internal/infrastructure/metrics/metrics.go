package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	SettlementsApplied  *prometheus.CounterVec
	SettlementsReversed *prometheus.CounterVec
	SettlementErrors    *prometheus.CounterVec
	SettledAmount       *prometheus.HistogramVec
	OperationDuration   *prometheus.HistogramVec

	// Fund transfer metrics
	FundTransfersCreated   prometheus.Counter
	FundTransfersCompleted prometheus.Counter
	FundTransfersDeleted   prometheus.Counter

	// Payment metrics
	PaymentTransitions *prometheus.CounterVec

	// Exchange rate metrics
	RateLookups *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SettlementsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_settlements_applied_total",
				Help: "Total settlement events applied to branch accounts",
			},
			[]string{"source_module", "direction"},
		),
		SettlementsReversed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_settlements_reversed_total",
				Help: "Total settled entries reversed",
			},
			[]string{"source_module"},
		),
		SettlementErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_settlement_errors_total",
				Help: "Total failed ledger operations by reason",
			},
			[]string{"operation", "reason"},
		),
		SettledAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "branchledger_settled_amount",
				Help:    "Settled amounts in account currency",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"currency"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "branchledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		FundTransfersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "branchledger_fund_transfers_created_total",
			Help: "Total inter-branch fund transfers created",
		}),
		FundTransfersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "branchledger_fund_transfers_completed_total",
			Help: "Total inter-branch fund transfers completed",
		}),
		FundTransfersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "branchledger_fund_transfers_deleted_total",
			Help: "Total pending fund transfers deleted",
		}),

		PaymentTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_payment_transitions_total",
				Help: "Total payment workflow actions",
			},
			[]string{"action"},
		),

		RateLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_rate_lookups_total",
				Help: "Exchange rate lookups by cache result",
			},
			[]string{"result"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "branchledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "branchledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "branchledger_outbox_published_total",
				Help: "Outbox events handed to the publisher",
			},
			[]string{"event_type", "status"},
		),
	}
}
