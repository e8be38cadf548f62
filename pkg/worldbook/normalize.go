package worldbook

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Normalize converts a raw entry set into a slice.
//
// Accepted shapes: []domain.WorldBookEntry, a slice of generic maps, a map
// keyed by uid (ordered by numeric uid, then by key), or either of those
// wrapped as {"entries": ...}. Map keys that parse as integers fill in a
// missing uid.
func Normalize(raw any) ([]domain.WorldBookEntry, error) {
	switch v := raw.(type) {
	case nil:
		return []domain.WorldBookEntry{}, nil
	case []domain.WorldBookEntry:
		return v, nil
	case map[string]domain.WorldBookEntry:
		generic := make(map[string]any, len(v))
		for k, e := range v {
			generic[k] = e
		}
		return normalizeMap(generic)
	case []any:
		out := make([]domain.WorldBookEntry, 0, len(v))
		for i, item := range v {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return Normalize(items)
	case map[string]any:
		if inner, ok := v["entries"]; ok && len(v) == 1 {
			return Normalize(inner)
		}
		return normalizeMap(v)
	default:
		return nil, &domain.ValidationError{Field: "entries", Reason: fmt.Sprintf("unsupported world book shape %T", raw)}
	}
}

func normalizeMap(m map[string]any) ([]domain.WorldBookEntry, error) {
	type keyed struct {
		key   string
		entry domain.WorldBookEntry
	}

	items := make([]keyed, 0, len(m))
	for k, item := range m {
		e, err := decodeEntry(item)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		if e.UID == 0 {
			if n, convErr := strconv.Atoi(k); convErr == nil {
				e.UID = n
			}
		}
		items = append(items, keyed{key: k, entry: e})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].entry.UID != items[j].entry.UID {
			return items[i].entry.UID < items[j].entry.UID
		}
		return items[i].key < items[j].key
	})

	out := make([]domain.WorldBookEntry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out, nil
}

func decodeEntry(item any) (domain.WorldBookEntry, error) {
	if e, ok := item.(domain.WorldBookEntry); ok {
		return e, nil
	}

	// Imported cards omit flags that default to on.
	e := domain.WorldBookEntry{Selective: true, Enabled: true}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &e,
	})
	if err != nil {
		return e, err
	}
	if err := dec.Decode(item); err != nil {
		return e, &domain.ValidationError{Field: "entries", Reason: err.Error()}
	}
	return e, nil
}
