package app

import (
	"context"
	"strings"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/DanstheMan1981/allrails/internal/resolve"
)

// PublicRepository is the read-only persistence the public page needs.
type PublicRepository interface {
	GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error)
	ListActivePaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethod, error)
}

// PublicPageService composes visitor-facing pages. Nothing is cached: actions are
// resolved from the current registry on every call.
type PublicPageService struct {
	repo PublicRepository
}

func NewPublicPageService(repo PublicRepository) *PublicPageService {
	return &PublicPageService{repo: repo}
}

// GetPublicPage returns the projection for username, matched case-insensitively.
func (s *PublicPageService) GetPublicPage(ctx context.Context, username string) (*domain.PublicPage, error) {
	normalized := strings.ToLower(strings.TrimSpace(username))
	if _, err := domain.NormalizeUsername(normalized); err != nil {
		return nil, domain.ErrNotFound
	}

	profile, err := s.repo.GetProfileByUsername(ctx, normalized)
	if err != nil {
		return nil, err
	}

	methods, err := s.repo.ListActivePaymentMethods(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}
	return ComposePublicPage(profile, methods), nil
}

// ComposePublicPage keeps active methods only, sorts them by rank and resolves each action.
func ComposePublicPage(profile *domain.Profile, methods []domain.PaymentMethod) *domain.PublicPage {
	active := make([]domain.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		if m.Active {
			active = append(active, m)
		}
	}
	domain.SortMethods(active)

	page := &domain.PublicPage{
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		Avatar:      profile.Avatar,
		Bio:         profile.Bio,
		Methods:     make([]domain.PublicMethod, 0, len(active)),
	}
	for _, m := range active {
		page.Methods = append(page.Methods, domain.PublicMethod{
			ID:        m.ID,
			Type:      m.Type,
			Label:     m.Label,
			Handle:    m.Handle,
			SortOrder: m.SortOrder,
			Action:    resolve.Resolve(m.Type, m.Handle),
		})
	}
	return page
}
