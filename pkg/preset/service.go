package preset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/session"
)

// Collection is the store collection holding every preset, keyed by id.
const Collection = "presets"

type presets map[string]domain.Preset

// Service provides CRUD over presets.
type Service struct {
	sessions *session.Manager
}

// NewService creates a preset service.
func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions}
}

// List returns the stored presets ordered by id. The built-in preset is not included.
func (s *Service) List(ctx context.Context) ([]domain.Preset, error) {
	all, err := session.Read[presets](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Preset, 0, len(all))
	for _, p := range all {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a stored preset.
func (s *Service) Get(ctx context.Context, id string) (*domain.Preset, error) {
	all, err := session.Read[presets](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	p, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

// Resolve returns the preset with id, falling back to Default when id is
// empty or names the built-in preset. A stored preset named DefaultID overrides it.
func (s *Service) Resolve(ctx context.Context, id string) (domain.Preset, error) {
	if id == "" {
		id = DefaultID
	}
	p, err := s.Get(ctx, id)
	if err == nil {
		return *p, nil
	}
	if id == DefaultID && errors.Is(err, domain.ErrNotFound) {
		return Default, nil
	}
	return domain.Preset{}, err
}

// Save creates or replaces a preset.
func (s *Service) Save(ctx context.Context, p domain.Preset) error {
	if p.ID == "" {
		return &domain.ValidationError{Field: "id", Reason: "preset id is required"}
	}
	return session.Update(ctx, s.sessions, Collection, func(all *presets) error {
		if *all == nil {
			*all = make(presets)
		}
		(*all)[p.ID] = p
		return nil
	})
}

// Delete removes a stored preset.
func (s *Service) Delete(ctx context.Context, id string) error {
	return session.Update(ctx, s.sessions, Collection, func(all *presets) error {
		if _, ok := (*all)[id]; !ok {
			return fmt.Errorf("preset %q: %w", id, domain.ErrNotFound)
		}
		delete(*all, id)
		return nil
	})
}
