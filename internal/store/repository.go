/**
 * @description
 * Repository contracts for profiles, payment methods and the event outbox.
 * The PostgreSQL implementation lives alongside; services depend on these
 * interfaces so tests can substitute in-memory stubs.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository persists one profile per account.
type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, userID string, input domain.UpsertProfileInput) (*domain.Profile, error)
}

// PaymentMethodRepository persists an owner's ordered payment methods.
// Every method takes the owner id; rows belonging to anyone else are invisible.
type PaymentMethodRepository interface {
	ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error)
	ListActivePaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, userID, methodID string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, methodID string) error
	ReorderPaymentMethods(ctx context.Context, userID string, order []domain.OrderEntry) ([]domain.PaymentMethod, error)
}

// OutboxMessage is a claimed event awaiting publication.
type OutboxMessage struct {
	ID         int64
	Exchange   string
	RoutingKey string
	Payload    []byte
	Attempts   int
}

// OutboxRepository is the dispatcher's view of the event outbox.
type OutboxRepository interface {
	ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
	PurgePublishedOutbox(ctx context.Context, publishedBefore time.Time) (int64, error)
}

// PostgresRepository implements every repository interface over a pgx pool.
type PostgresRepository struct {
	db       *pgxpool.Pool
	exchange string
}

// NewPostgresRepository creates a repository that enqueues events for exchange.
func NewPostgresRepository(db *pgxpool.Pool, exchange string) *PostgresRepository {
	return &PostgresRepository{db: db, exchange: exchange}
}

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextFormat = "22P02"
)

// mapError converts driver errors into domain error kinds.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == usernameIndex {
				return domain.ErrUsernameTaken
			}
		case pgInvalidTextFormat:
			// malformed uuid in a lookup
			return domain.ErrNotFound
		}
	}
	return err
}

func wrap(op string, err error) error {
	mapped := mapError(err)
	if errors.Is(mapped, domain.ErrNotFound) || errors.Is(mapped, domain.ErrUsernameTaken) {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, mapped)
}
