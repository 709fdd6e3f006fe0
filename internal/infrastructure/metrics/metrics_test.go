package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.SettlementsApplied == nil || m.HTTPRequests == nil || m.FundTransfersCompleted == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.FundTransfersCreated.Inc()
	m.SettlementsApplied.WithLabelValues("payment", "credit").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	if got := testutil.ToFloat64(m.FundTransfersCreated); got != 1 {
		t.Fatalf("expected fund transfer counter 1, got %v", got)
	}
}

func TestNewWithSeparateRegistries(t *testing.T) {
	// Independent registries must not collide on metric names.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}
