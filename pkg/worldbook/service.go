package worldbook

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/session"
)

// Collection is the store collection holding every world book, keyed by character id.
const Collection = "world_books"

type books map[string][]domain.WorldBookEntry

// Service provides character-scoped CRUD over world-book entries.
type Service struct {
	sessions *session.Manager
	now      func() time.Time
}

// NewService creates a world-book service.
func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions, now: time.Now}
}

func (s *Service) update(ctx context.Context, fn func(all books) error) error {
	return session.Update(ctx, s.sessions, Collection, func(all *books) error {
		if *all == nil {
			*all = make(books)
		}
		return fn(*all)
	})
}

// List returns the character's entries in stored order.
func (s *Service) List(ctx context.Context, characterID string) ([]domain.WorldBookEntry, error) {
	all, err := session.Read[books](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	entries := all[characterID]
	if entries == nil {
		entries = []domain.WorldBookEntry{}
	}
	return entries, nil
}

// Get returns one entry by uid.
func (s *Service) Get(ctx context.Context, characterID string, uid int) (*domain.WorldBookEntry, error) {
	entries, err := s.List(ctx, characterID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UID == uid {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("world book entry %d for character %q: %w", uid, characterID, domain.ErrNotFound)
}

// Add stores a new entry with the next free uid and stamps createdAt/updatedAt.
func (s *Service) Add(ctx context.Context, characterID string, entry domain.WorldBookEntry) (*domain.WorldBookEntry, error) {
	err := s.update(ctx, func(all books) error {
		maxUID := 0
		for _, e := range all[characterID] {
			if e.UID > maxUID {
				maxUID = e.UID
			}
		}
		entry.UID = maxUID + 1
		stamp(&entry, s.now(), true)
		all[characterID] = append(all[characterID], entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update replaces the entry with the same uid, keeping its createdAt stamp.
func (s *Service) Update(ctx context.Context, characterID string, entry domain.WorldBookEntry) (*domain.WorldBookEntry, error) {
	err := s.update(ctx, func(all books) error {
		entries := all[characterID]
		for i := range entries {
			if entries[i].UID != entry.UID {
				continue
			}
			if created, ok := entries[i].Extensions["createdAt"]; ok {
				if entry.Extensions == nil {
					entry.Extensions = make(map[string]any)
				}
				entry.Extensions["createdAt"] = created
			}
			stamp(&entry, s.now(), false)
			entries[i] = entry
			return nil
		}
		return fmt.Errorf("world book entry %d for character %q: %w", entry.UID, characterID, domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an entry by uid.
func (s *Service) Delete(ctx context.Context, characterID string, uid int) error {
	return s.update(ctx, func(all books) error {
		entries := all[characterID]
		for i := range entries {
			if entries[i].UID == uid {
				all[characterID] = append(entries[:i:i], entries[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("world book entry %d for character %q: %w", uid, characterID, domain.ErrNotFound)
	})
}

// Replace normalizes raw (see Normalize) and stores it as the character's
// whole world book, e.g. when importing a character card.
func (s *Service) Replace(ctx context.Context, characterID string, raw any) ([]domain.WorldBookEntry, error) {
	entries, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range entries {
		stamp(&entries[i], now, entries[i].Extensions["createdAt"] == nil)
	}

	err = s.update(ctx, func(all books) error {
		all[characterID] = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Clear removes the character's world book.
func (s *Service) Clear(ctx context.Context, characterID string) error {
	return s.update(ctx, func(all books) error {
		delete(all, characterID)
		return nil
	})
}

func stamp(e *domain.WorldBookEntry, now time.Time, created bool) {
	if e.Extensions == nil {
		e.Extensions = make(map[string]any)
	}
	ms := now.UnixMilli()
	if created {
		e.Extensions["createdAt"] = ms
	}
	e.Extensions["updatedAt"] = ms
}
