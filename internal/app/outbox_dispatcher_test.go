package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanstheMan1981/allrails/internal/store"
	"github.com/DanstheMan1981/allrails/pkg/rabbitmq"
)

func TestFlushOnce_PublishesAndMarks(t *testing.T) {
	repo := &outboxStub{messages: []store.OutboxMessage{
		{ID: 1, Exchange: "allrails_events", RoutingKey: "payment_method.created", Payload: []byte(`{}`), Attempts: 1},
		{ID: 2, Exchange: "allrails_events", RoutingKey: "payment_method.reordered", Payload: []byte(`{}`), Attempts: 3},
	}}
	publisher := &publisherStub{failOn: "payment_method.reordered"}
	opened := 0
	dispatcher := NewOutboxDispatcher(repo, func() (rabbitmq.Publisher, error) {
		opened++
		return publisher, nil
	}, discardLogger())

	if err := dispatcher.FlushOnce(context.Background()); err != nil {
		t.Fatalf("FlushOnce returned error: %v", err)
	}

	if len(repo.published) != 1 || repo.published[0] != 1 {
		t.Fatalf("expected message 1 published, got %v", repo.published)
	}
	if delay, ok := repo.failed[2]; !ok || delay != 8 {
		t.Fatalf("expected message 2 rescheduled after 8s, got %v", repo.failed)
	}
	if publisher.closed != 1 {
		t.Fatalf("expected publisher closed after failure, got %d closes", publisher.closed)
	}
	if opened != 1 {
		t.Fatalf("expected one publisher opened, got %d", opened)
	}
}

func TestFlushOnce_PublisherUnavailable(t *testing.T) {
	repo := &outboxStub{messages: []store.OutboxMessage{{ID: 5, RoutingKey: "profile.upserted", Payload: []byte(`{}`)}}}
	dispatcher := NewOutboxDispatcher(repo, func() (rabbitmq.Publisher, error) {
		return nil, errors.New("dial failed")
	}, discardLogger())

	if err := dispatcher.FlushOnce(context.Background()); err != nil {
		t.Fatalf("FlushOnce returned error: %v", err)
	}
	if _, ok := repo.failed[5]; !ok {
		t.Fatal("expected message rescheduled when publisher cannot be opened")
	}
}

func TestFlushOnce_ClaimError(t *testing.T) {
	repo := &outboxStub{claimErr: errors.New("db down")}
	dispatcher := NewOutboxDispatcher(repo, nil, discardLogger())
	if err := dispatcher.FlushOnce(context.Background()); err == nil {
		t.Fatal("expected claim error to be returned")
	}
}

func TestStart_DoneAfterCancelClosesPublisher(t *testing.T) {
	repo := &outboxStub{messages: []store.OutboxMessage{{ID: 7, RoutingKey: "payment_method.deleted", Payload: []byte(`{}`)}}}
	publisher := &publisherStub{}
	opened := make(chan struct{}, 1)
	dispatcher := NewOutboxDispatcher(repo, func() (rabbitmq.Publisher, error) {
		opened <- struct{}{}
		return publisher, nil
	}, discardLogger())
	dispatcher.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := dispatcher.Start(ctx)

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("dispatcher never flushed")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
	if publisher.closed != 1 {
		t.Fatalf("expected publisher closed once on stop, got %d", publisher.closed)
	}
	if len(repo.published) != 1 || repo.published[0] != 7 {
		t.Fatalf("expected in-flight batch finished before stop, got %v", repo.published)
	}
}

func TestRetryDelaySeconds(t *testing.T) {
	tests := map[int]int{0: 1, 1: 2, 3: 8, 8: 256, 20: 256}
	for attempt, want := range tests {
		if got := retryDelaySeconds(attempt); got != want {
			t.Fatalf("attempt %d: expected %d, got %d", attempt, want, got)
		}
	}
}

func TestPurgePublishedOutbox_UsesRetention(t *testing.T) {
	repo := &outboxStub{}
	jobs := NewJobs(repo, 48*time.Hour, discardLogger())
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return fixed }

	jobs.PurgePublishedOutbox()

	if !repo.purgedAt.Equal(fixed.Add(-48 * time.Hour)) {
		t.Fatalf("unexpected cutoff %v", repo.purgedAt)
	}
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	jobs := NewJobs(&outboxStub{}, time.Hour, discardLogger())
	scheduler := NewScheduler(jobs, discardLogger(), "every other tuesday")
	if err := scheduler.Start(); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	jobs := NewJobs(&outboxStub{}, time.Hour, discardLogger())
	scheduler := NewScheduler(jobs, discardLogger(), "@every 1h")
	if err := scheduler.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
