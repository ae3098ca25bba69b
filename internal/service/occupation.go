package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdr-rating-server/internal/domain"
	"github.com/pdr-rating-server/internal/refdata"
)

// OccupationResolver turns a job title into its occupational group and variant
type OccupationResolver struct {
	store  refdata.Store
	mode   domain.OccupationMatchMode
	logger *logrus.Logger
}

// NewOccupationResolver creates a resolver using the given title match mode
func NewOccupationResolver(store refdata.Store, mode domain.OccupationMatchMode, logger *logrus.Logger) *OccupationResolver {
	if !mode.IsValid() {
		mode = domain.MatchSubstring
	}
	return &OccupationResolver{store: store, mode: mode, logger: logger}
}

// Resolve looks up the group for title and the group's default variant. There
// is no fallback group: an unknown title fails with ErrOccupationNotFound.
func (r *OccupationResolver) Resolve(ctx context.Context, title string) (*domain.OccupationVariant, error) {
	title = strings.TrimSpace(title)

	group, err := r.store.FindOccupationGroup(ctx, title, r.mode)
	if err != nil {
		return nil, fmt.Errorf("resolving occupation %q: %w", title, err)
	}

	variant, err := r.store.FindVariant(ctx, refdata.DefaultBodyPart, group, refdata.DefaultImpairmentCode)
	if err != nil {
		return nil, fmt.Errorf("resolving variant for group %d: %w", group, err)
	}

	r.logger.WithFields(logrus.Fields{
		"title":   title,
		"group":   group,
		"variant": variant.String(),
	}).Debug("Resolved occupational variant")

	return &domain.OccupationVariant{
		Title:       title,
		GroupNumber: group,
		Variant:     variant,
	}, nil
}

// Mode returns the configured match mode
func (r *OccupationResolver) Mode() domain.OccupationMatchMode {
	return r.mode
}

// occupationMemo resolves at most once per calculation
type occupationMemo struct {
	resolver *OccupationResolver
	title    string
	result   *domain.OccupationVariant
}

func (m *occupationMemo) get(ctx context.Context) (*domain.OccupationVariant, error) {
	if m.result != nil {
		return m.result, nil
	}
	result, err := m.resolver.Resolve(ctx, m.title)
	if err != nil {
		return nil, err
	}
	m.result = result
	return result, nil
}
