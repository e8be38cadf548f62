package character

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/session"
	"github.com/google/uuid"
)

// Collection is the store collection holding every character, keyed by id.
const Collection = "characters"

type characters map[string]domain.Character

// Service provides CRUD over characters.
type Service struct {
	sessions *session.Manager
	newID    func() string
}

// NewService creates a character service.
func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions, newID: uuid.NewString}
}

// List returns every character ordered by name, then id.
func (s *Service) List(ctx context.Context) ([]domain.Character, error) {
	all, err := session.Read[characters](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Character, 0, len(all))
	for _, c := range all {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns one character.
func (s *Service) Get(ctx context.Context, id string) (*domain.Character, error) {
	all, err := session.Read[characters](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	c, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("character %q: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

// Save creates or replaces a character. An empty id is assigned a uuid.
func (s *Service) Save(ctx context.Context, c domain.Character) (*domain.Character, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "character name is required"}
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	err := session.Update(ctx, s.sessions, Collection, func(all *characters) error {
		if *all == nil {
			*all = make(characters)
		}
		(*all)[c.ID] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a character and its avatar.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := session.Update(ctx, s.sessions, Collection, func(all *characters) error {
		if _, ok := (*all)[id]; !ok {
			return fmt.Errorf("character %q: %w", id, domain.ErrNotFound)
		}
		delete(*all, id)
		return nil
	})
	if err != nil {
		return err
	}
	return s.sessions.Store().DeleteBlob(ctx, avatarKey(id))
}

// SetAvatar stores the character's avatar image.
func (s *Service) SetAvatar(ctx context.Context, id string, data []byte) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.Store().SetBlob(ctx, avatarKey(id), data); err != nil {
		return fmt.Errorf("failed to store avatar for %s: %w", id, err)
	}
	return nil
}

// Avatar returns the character's avatar image.
func (s *Service) Avatar(ctx context.Context, id string) ([]byte, error) {
	data, err := s.sessions.Store().GetBlob(ctx, avatarKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar for %s: %w", id, err)
	}
	return data, nil
}

func avatarKey(id string) string {
	return "avatars/" + id
}
