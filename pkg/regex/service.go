package regex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/session"
)

// Collection is the store collection holding scripts and settings of every owner.
// Script lists live under the owner id, settings under "<owner>_settings".
const Collection = "regex_scripts"

const settingsSuffix = "_settings"

type scopes map[string]json.RawMessage

// Service provides owner-scoped CRUD over regex scripts. It implements ScriptSource.
type Service struct {
	sessions *session.Manager
}

// NewService creates a regex script service.
func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions}
}

var _ ScriptSource = (*Service)(nil)

// Scripts returns the owner's scripts in stored order.
func (s *Service) Scripts(ctx context.Context, ownerID string) ([]domain.RegexScript, error) {
	all, err := session.Read[scopes](ctx, s.sessions, Collection)
	if err != nil {
		return nil, err
	}
	return decodeScripts(all, ownerID)
}

// Settings returns the owner's settings. A missing record means enabled.
func (s *Service) Settings(ctx context.Context, ownerID string) (domain.RegexSettings, error) {
	all, err := session.Read[scopes](ctx, s.sessions, Collection)
	if err != nil {
		return domain.RegexSettings{}, err
	}
	raw, ok := all[ownerID+settingsSuffix]
	if !ok {
		return domain.RegexSettings{Enabled: true}, nil
	}
	settings := domain.RegexSettings{Enabled: true}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.RegexSettings{}, fmt.Errorf("failed to decode regex settings for %s: %w", ownerID, err)
	}
	return settings, nil
}

// SetSettings stores the owner's settings.
func (s *Service) SetSettings(ctx context.Context, ownerID string, settings domain.RegexSettings) error {
	return s.update(ctx, func(all scopes) error {
		raw, err := json.Marshal(settings)
		if err != nil {
			return err
		}
		all[ownerID+settingsSuffix] = raw
		return nil
	})
}

// Save appends script to the owner's list, or replaces the script with the same key.
func (s *Service) Save(ctx context.Context, ownerID string, script domain.RegexScript) error {
	if script.Key() == "" {
		return &domain.ValidationError{Field: "scriptKey", Reason: "script needs a key, id or name"}
	}
	return s.modify(ctx, ownerID, func(list []domain.RegexScript) ([]domain.RegexScript, error) {
		for i := range list {
			if list[i].Key() == script.Key() {
				list[i] = script
				return list, nil
			}
		}
		return append(list, script), nil
	})
}

// Delete removes the script with the given key from the owner's list.
func (s *Service) Delete(ctx context.Context, ownerID, key string) error {
	return s.modify(ctx, ownerID, func(list []domain.RegexScript) ([]domain.RegexScript, error) {
		for i := range list {
			if list[i].Key() == key {
				return append(list[:i:i], list[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("regex script %q of %s: %w", key, ownerID, domain.ErrNotFound)
	})
}

// Replace stores scripts as the owner's whole list.
func (s *Service) Replace(ctx context.Context, ownerID string, scripts []domain.RegexScript) error {
	return s.modify(ctx, ownerID, func([]domain.RegexScript) ([]domain.RegexScript, error) {
		return scripts, nil
	})
}

func (s *Service) modify(ctx context.Context, ownerID string, fn func([]domain.RegexScript) ([]domain.RegexScript, error)) error {
	return s.update(ctx, func(all scopes) error {
		list, err := decodeScripts(all, ownerID)
		if err != nil {
			return err
		}
		list, err = fn(list)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return err
		}
		all[ownerID] = raw
		return nil
	})
}

func (s *Service) update(ctx context.Context, fn func(all scopes) error) error {
	return session.Update(ctx, s.sessions, Collection, func(all *scopes) error {
		if *all == nil {
			*all = make(scopes)
		}
		return fn(*all)
	})
}

func decodeScripts(all scopes, ownerID string) ([]domain.RegexScript, error) {
	raw, ok := all[ownerID]
	if !ok {
		return []domain.RegexScript{}, nil
	}
	var list []domain.RegexScript
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode regex scripts for %s: %w", ownerID, err)
	}
	if list == nil {
		list = []domain.RegexScript{}
	}
	return list, nil
}
