/**
 * @description
 * Data access for payment methods. Queries are always scoped by owner, so an id
 * belonging to another account behaves exactly like an unknown id. Mutations that
 * depend on the owner's current ranks (create, reorder) serialize per owner with a
 * transaction-scoped advisory lock.
 */
package store

import (
	"context"
	"time"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const methodColumns = `id::text, user_id, type, label, handle, sort_order, active, created_at, updated_at`

func scanMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	if err := row.Scan(&m.ID, &m.UserID, &m.Type, &m.Label, &m.Handle, &m.SortOrder, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMethods(rows pgx.Rows) ([]domain.PaymentMethod, error) {
	defer rows.Close()
	methods := make([]domain.PaymentMethod, 0)
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, *m)
	}
	return methods, rows.Err()
}

// ListPaymentMethods returns the owner's methods ordered by rank, then creation time.
func (r *PostgresRepository) ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE user_id = $1 ORDER BY sort_order, created_at`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, wrap("failed to query payment methods", err)
	}
	methods, err := collectMethods(rows)
	if err != nil {
		return nil, wrap("failed to scan payment methods", err)
	}
	return methods, nil
}

// ListActivePaymentMethods is ListPaymentMethods restricted to active rows.
func (r *PostgresRepository) ListActivePaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	query := `SELECT ` + methodColumns + ` FROM payment_methods WHERE user_id = $1 AND active ORDER BY sort_order, created_at`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, wrap("failed to query active payment methods", err)
	}
	methods, err := collectMethods(rows)
	if err != nil {
		return nil, wrap("failed to scan active payment methods", err)
	}
	return methods, nil
}

// CreatePaymentMethod appends a new active method after the owner's current last rank.
func (r *PostgresRepository) CreatePaymentMethod(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrap("failed to begin create", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwnerTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	ranks, err := ownerRanksTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO payment_methods (user_id, type, label, handle, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING ` + methodColumns
	method, err := scanMethod(tx.QueryRow(ctx, query, userID, input.Type, input.Label, input.Handle, domain.NextSortOrder(ranks)))
	if err != nil {
		return nil, wrap("failed to create payment method", err)
	}

	if err := enqueueEventTx(ctx, tx, r.exchange, domain.RoutingKeyPaymentMethodCreated, methodEvent(method)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("failed to commit create", err)
	}
	return method, nil
}

// UpdatePaymentMethod applies a partial update. A patch label of "" clears the label.
func (r *PostgresRepository) UpdatePaymentMethod(ctx context.Context, userID, methodID string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrap("failed to begin update", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE payment_methods
		SET type = COALESCE($3, type),
			label = CASE WHEN $4::text IS NULL THEN label ELSE NULLIF($4::text, '') END,
			handle = COALESCE($5, handle),
			active = COALESCE($6, active),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + methodColumns
	method, err := scanMethod(tx.QueryRow(ctx, query, methodID, userID, patch.Type, patch.Label, patch.Handle, patch.Active))
	if err != nil {
		return nil, wrap("failed to update payment method", err)
	}

	if err := enqueueEventTx(ctx, tx, r.exchange, domain.RoutingKeyPaymentMethodUpdated, methodEvent(method)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("failed to commit update", err)
	}
	return method, nil
}

// DeletePaymentMethod removes one method. Survivors keep their ranks until the next reorder.
func (r *PostgresRepository) DeletePaymentMethod(ctx context.Context, userID, methodID string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrap("failed to begin delete", err)
	}
	defer tx.Rollback(ctx)

	query := `DELETE FROM payment_methods WHERE id = $1 AND user_id = $2 RETURNING ` + methodColumns
	method, err := scanMethod(tx.QueryRow(ctx, query, methodID, userID))
	if err != nil {
		return wrap("failed to delete payment method", err)
	}

	if err := enqueueEventTx(ctx, tx, r.exchange, domain.RoutingKeyPaymentMethodDeleted, methodEvent(method)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("failed to commit delete", err)
	}
	return nil
}

// ReorderPaymentMethods assigns the given ranks atomically. The order must cover the
// owner's current ids exactly with ranks 0..n-1, checked under the owner lock so a
// concurrent create or delete cannot slip between validation and write.
func (r *PostgresRepository) ReorderPaymentMethods(ctx context.Context, userID string, order []domain.OrderEntry) ([]domain.PaymentMethod, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrap("failed to begin reorder", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwnerTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT id::text FROM payment_methods WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, wrap("failed to lock payment methods", err)
	}
	currentIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap("failed to read payment method ids", err)
	}

	if err := domain.ValidateReorder(currentIDs, order); err != nil {
		return nil, err
	}

	for _, entry := range order {
		if _, err := tx.Exec(ctx, `
			UPDATE payment_methods
			SET sort_order = $3, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, entry.ID, userID, entry.SortOrder); err != nil {
			return nil, wrap("failed to apply sort order", err)
		}
	}

	event := domain.PaymentMethodsReorderedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Order:      order,
		OccurredAt: time.Now().UTC(),
	}
	if err := enqueueEventTx(ctx, tx, r.exchange, domain.RoutingKeyPaymentMethodsReordered, event); err != nil {
		return nil, err
	}

	listRows, err := tx.Query(ctx, `SELECT `+methodColumns+` FROM payment_methods WHERE user_id = $1 ORDER BY sort_order, created_at`, userID)
	if err != nil {
		return nil, wrap("failed to reload payment methods", err)
	}
	methods, err := collectMethods(listRows)
	if err != nil {
		return nil, wrap("failed to scan reordered payment methods", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("failed to commit reorder", err)
	}
	return methods, nil
}

func lockOwnerTx(ctx context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return wrap("failed to lock owner", err)
	}
	return nil
}

func ownerRanksTx(ctx context.Context, tx pgx.Tx, userID string) ([]int, error) {
	rows, err := tx.Query(ctx, `SELECT sort_order FROM payment_methods WHERE user_id = $1`, userID)
	if err != nil {
		return nil, wrap("failed to query sort orders", err)
	}
	ranks, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, wrap("failed to scan sort orders", err)
	}
	return ranks, nil
}

func methodEvent(m *domain.PaymentMethod) domain.PaymentMethodEvent {
	return domain.PaymentMethodEvent{
		EventID:    uuid.NewString(),
		UserID:     m.UserID,
		MethodID:   m.ID,
		Type:       m.Type,
		Active:     m.Active,
		SortOrder:  m.SortOrder,
		OccurredAt: time.Now().UTC(),
	}
}
