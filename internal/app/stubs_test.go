package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/DanstheMan1981/allrails/internal/store"
	"github.com/DanstheMan1981/allrails/internal/store/storetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemRepo() *storetest.MemoryRepository {
	return storetest.NewMemoryRepository()
}

// outboxStub records dispatcher calls.
type outboxStub struct {
	messages  []store.OutboxMessage
	claimErr  error
	published []int64
	failed    map[int64]int
	purgedAt  time.Time
	purgeErr  error
}

func (s *outboxStub) ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]store.OutboxMessage, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	claimed := s.messages
	s.messages = nil
	return claimed, nil
}

func (s *outboxStub) MarkOutboxPublished(ctx context.Context, id int64) error {
	s.published = append(s.published, id)
	return nil
}

func (s *outboxStub) MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error {
	if s.failed == nil {
		s.failed = map[int64]int{}
	}
	s.failed[id] = retryAfterSeconds
	return nil
}

func (s *outboxStub) PurgePublishedOutbox(ctx context.Context, publishedBefore time.Time) (int64, error) {
	if s.purgeErr != nil {
		return 0, s.purgeErr
	}
	s.purgedAt = publishedBefore
	return 3, nil
}

type publisherStub struct {
	sent   []string
	failOn string
	closed int
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if routingKey == p.failOn {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, routingKey)
	return nil
}

func (p *publisherStub) Close() { p.closed++ }
