/**
 * @description
 * Owner-facing business logic: profile upsert and payment method management.
 * Inputs are normalized here before they reach the repository; ownership and
 * rank invariants are enforced again inside the repository transaction.
 *
 * @dependencies
 * - internal/store: repository contracts.
 * - github.com/google/uuid: method id parsing.
 */
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/store"
	"github.com/google/uuid"
)

// Repository is the persistence the owner service needs.
type Repository interface {
	store.ProfileRepository
	store.PaymentMethodRepository
}

// Service implements the owner operations behind the authenticated API.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetProfile returns the caller's profile, or nil when none has been saved.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.repo.GetProfileByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpsertProfile validates and saves the caller's profile.
func (s *Service) UpsertProfile(ctx context.Context, userID string, input domain.UpsertProfileInput) (*domain.Profile, error) {
	if err := input.Normalize(); err != nil {
		return nil, err
	}
	profile, err := s.repo.UpsertProfile(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile upserted", "user_id", userID, "username", profile.Username)
	return profile, nil
}

// ListPaymentMethods returns every method the caller owns, in display order.
func (s *Service) ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx, userID)
}

// CreatePaymentMethod appends a new active method.
func (s *Service) CreatePaymentMethod(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	if err := input.Normalize(); err != nil {
		return nil, err
	}
	method, err := s.repo.CreatePaymentMethod(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment method created", "user_id", userID, "method_id", method.ID, "type", method.Type)
	return method, nil
}

// UpdatePaymentMethod applies a partial update to one of the caller's methods.
func (s *Service) UpdatePaymentMethod(ctx context.Context, userID, methodID string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	id, err := parseMethodID(methodID)
	if err != nil {
		return nil, err
	}
	if err := patch.Normalize(); err != nil {
		return nil, err
	}
	return s.repo.UpdatePaymentMethod(ctx, userID, id, patch)
}

// DeletePaymentMethod removes one of the caller's methods.
func (s *Service) DeletePaymentMethod(ctx context.Context, userID, methodID string) error {
	id, err := parseMethodID(methodID)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePaymentMethod(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("payment method deleted", "user_id", userID, "method_id", id)
	return nil
}

// ReorderPaymentMethods assigns new ranks to all of the caller's methods at once.
func (s *Service) ReorderPaymentMethods(ctx context.Context, userID string, order []domain.OrderEntry) ([]domain.PaymentMethod, error) {
	normalized := make([]domain.OrderEntry, len(order))
	for i, entry := range order {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, domain.NewValidationError("order", "order contains an unknown payment method id")
		}
		normalized[i] = domain.OrderEntry{ID: id.String(), SortOrder: entry.SortOrder}
	}
	methods, err := s.repo.ReorderPaymentMethods(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment methods reordered", "user_id", userID, "count", len(methods))
	return methods, nil
}

// parseMethodID canonicalizes a method id. Anything that is not a UUID cannot exist.
func parseMethodID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.ErrNotFound
	}
	return id.String(), nil
}
