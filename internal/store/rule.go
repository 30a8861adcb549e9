package store

import (
	"context"
	"fmt"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// ListRules returns all automation rules. Rules live in a single
// document; a missing document yields an empty slice.
func (s *Store) ListRules(ctx context.Context) ([]*model.AutomationRule, error) {
	var rules []*model.AutomationRule
	if err := s.readDoc(".", trimExt(rulesFile), &rules); err != nil {
		if err == ErrNotFound {
			return []*model.AutomationRule{}, nil
		}
		return nil, err
	}
	return rules, nil
}

// GetRule returns one rule by id.
func (s *Store) GetRule(ctx context.Context, id string) (*model.AutomationRule, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateRule merges partial fields onto an existing rule and rewrites
// the rules document. The rule id itself cannot be changed.
func (s *Store) UpdateRule(ctx context.Context, id string, partial map[string]any) (*model.AutomationRule, error) {
	mu := s.nsLock(nsRules)
	mu.Lock()
	defer mu.Unlock()

	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, rule := range rules {
		if rule.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotFound
	}

	var raw map[string]any
	if err := decodeBack(rules[idx], &raw); err != nil {
		return nil, err
	}
	for k, v := range partial {
		if k == "id" || k == "created_at" {
			continue
		}
		raw[k] = v
	}
	raw["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	var updated model.AutomationRule
	if err := decodeInto(raw, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	rules[idx] = &updated

	if err := s.writeDoc(".", trimExt(rulesFile), rules); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SaveRules replaces the full rules document.
func (s *Store) SaveRules(ctx context.Context, rules []*model.AutomationRule) error {
	mu := s.nsLock(nsRules)
	mu.Lock()
	defer mu.Unlock()

	return s.writeDoc(".", trimExt(rulesFile), rules)
}

// GetSettings returns the settings document, falling back to defaults
// when none has been written yet.
func (s *Store) GetSettings(ctx context.Context, defaults model.Settings) (*model.Settings, error) {
	settings := defaults
	if err := s.readDoc(".", trimExt(settingsFile), &settings); err != nil {
		if err == ErrNotFound {
			return &settings, nil
		}
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings merges partial fields onto the settings document.
func (s *Store) UpdateSettings(ctx context.Context, defaults model.Settings, partial map[string]any) (*model.Settings, error) {
	mu := s.nsLock(nsSettings)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.GetSettings(ctx, defaults)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := decodeBack(current, &raw); err != nil {
		return nil, err
	}
	for k, v := range partial {
		raw[k] = v
	}
	raw["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	var updated model.Settings
	if err := decodeInto(raw, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.writeDoc(".", trimExt(settingsFile), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// decodeBack round-trips a typed record into a raw map for merging.
func decodeBack(v any, raw *map[string]any) error {
	var m map[string]any
	if err := roundTrip(v, &m); err != nil {
		return fmt.Errorf("encode record for merge: %w", err)
	}
	*raw = m
	return nil
}
