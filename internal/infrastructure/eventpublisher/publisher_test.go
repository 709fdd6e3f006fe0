package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/metrics"
	"github.com/iho/branchledger/internal/usecase"
)

func TestRelayPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{{ID: "evt-1", EventType: domain.EventTypeEntryAppended, AggregateID: "centro:usd_cash"}},
	}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)

	n, err := ep.Relay(context.Background())
	if err != nil {
		t.Fatalf("Relay failed: %v", err)
	}

	if n != 1 || len(pub.published) != 1 {
		t.Fatalf("expected one published event, got n=%d published=%d", n, len(pub.published))
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-1" {
		t.Fatalf("expected event to be marked published, got %#v", repo.marked)
	}
	if got := testutil.ToFloat64(ep.metrics.OutboxPublished.WithLabelValues(domain.EventTypeEntryAppended, "published")); got != 1 {
		t.Fatalf("expected published counter 1, got %v", got)
	}
}

func TestRelayDrainsFullBatches(t *testing.T) {
	repo := &stubOutboxRepo{}
	for _, id := range []string{"evt-1", "evt-2", "evt-3", "evt-4", "evt-5"} {
		repo.events = append(repo.events, &domain.OutboxEvent{ID: id, EventType: "type", AggregateID: id})
	}
	ep := newTestPublisher(repo, &stubPublisher{})
	ep.batchSize = 2

	n, err := ep.Relay(context.Background())
	if err != nil {
		t.Fatalf("Relay failed: %v", err)
	}
	if n != 5 || len(repo.marked) != 5 {
		t.Fatalf("expected all five events relayed in one pass, got n=%d marked=%v", n, repo.marked)
	}
}

func TestRelayHoldsBackAggregateAfterFailure(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", EventType: "type", AggregateID: "payment-1"},
			{ID: "evt-2", EventType: "type", AggregateID: "payment-1"},
			{ID: "evt-3", EventType: "type", AggregateID: "payment-2"},
		},
	}
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("broker unavailable")},
	}
	ep := newTestPublisher(repo, pub)

	n, err := ep.Relay(context.Background())
	if err != nil {
		t.Fatalf("Relay returned error: %v", err)
	}

	if n != 1 || len(pub.published) != 1 || pub.published[0].ID != "evt-3" {
		t.Fatalf("expected only the unrelated aggregate to go out, got %#v", pub.published)
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-3" {
		t.Fatalf("expected only evt-3 to be marked, got %#v", repo.marked)
	}
	if got := testutil.ToFloat64(ep.metrics.OutboxPublished.WithLabelValues("type", "error")); got != 1 {
		t.Fatalf("expected error counter 1, got %v", got)
	}
}

func TestRelayReturnsRepositoryError(t *testing.T) {
	repo := &stubOutboxRepo{err: errors.New("db down")}
	ep := newTestPublisher(repo, &stubPublisher{})

	if _, err := ep.Relay(context.Background()); err == nil {
		t.Fatalf("expected repository error")
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := &stubOutboxRepo{}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func TestLogPublisherWritesPayload(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(zerolog.New(&buf))

	err := pub.Publish(context.Background(), &domain.OutboxEvent{
		ID:        "evt-1",
		EventType: domain.EventTypeFundTransferCreated,
		Payload:   map[string]any{"amount": "50"},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if !strings.Contains(buf.String(), `"payload":{"amount":"50"}`) {
		t.Fatalf("expected payload in log line, got %s", buf.String())
	}
}

func newTestPublisher(repo *stubOutboxRepo, pub *stubPublisher) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

type stubOutboxRepo struct {
	events []*domain.OutboxEvent
	marked []string
	err    error
}

func (s *stubOutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var pending []*domain.OutboxEvent
	for _, e := range s.events {
		if !slices.Contains(s.marked, e.ID) && len(pending) < limit {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.marked = append(s.marked, id)
	return nil
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}
