package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// GetTool retrieves a tool by id.
func (s *Store) GetTool(ctx context.Context, id string) (*model.Tool, error) {
	var tool model.Tool
	if err := s.readDoc(nsTools, id, &tool); err != nil {
		return nil, err
	}
	return &tool, nil
}

// ListTools returns tools matching the filter, ordered by id.
// Unmatched filters yield an empty slice, not an error.
func (s *Store) ListTools(ctx context.Context, filter model.ToolFilter) ([]*model.Tool, error) {
	ids, err := s.listIDs(nsTools)
	if err != nil {
		return nil, err
	}

	tools := make([]*model.Tool, 0, len(ids))
	for _, id := range ids {
		var tool model.Tool
		if err := s.readDoc(nsTools, id, &tool); err != nil {
			// A record deleted between list and read is not an error.
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if matchesToolFilter(&tool, filter) {
			t := tool
			tools = append(tools, &t)
		}
	}

	return tools, nil
}

// AddTool validates and persists a new tool. An explicit id is kept;
// otherwise one is generated. Name and URL are required.
func (s *Store) AddTool(ctx context.Context, tool *model.Tool) (*model.Tool, error) {
	if strings.TrimSpace(tool.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(tool.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if tool.CommissionRate < 0 || tool.CommissionRate > 100 {
		return nil, fmt.Errorf("%w: commission rate must be within [0, 100]", ErrValidation)
	}

	mu := s.nsLock(nsTools)
	mu.Lock()
	defer mu.Unlock()

	if tool.ID == "" {
		tool.ID = s.NewID("tool")
	}
	if tool.Status == "" {
		tool.Status = model.ToolStatusActive
	}

	now := time.Now().UTC()
	tool.CreatedAt = now
	tool.UpdatedAt = now

	if err := s.writeDoc(nsTools, tool.ID, tool); err != nil {
		return nil, err
	}

	s.logger.Debug("tool added", "tool_id", tool.ID)
	return tool, nil
}

// UpdateTool merges partial fields onto an existing tool and stamps the
// update timestamp. The merge is shallow: arrays and objects in partial
// replace the stored field rather than merging into it. The merged
// document is decoded and validated before it is written, so a
// wrong-typed or invalid field rejects the update and leaves the
// stored record untouched.
func (s *Store) UpdateTool(ctx context.Context, id string, partial map[string]any) (*model.Tool, error) {
	mu := s.nsLock(nsTools)
	mu.Lock()
	defer mu.Unlock()

	raw, err := s.mergeRaw(nsTools, id, partial, "id", "created_at")
	if err != nil {
		return nil, err
	}

	var tool model.Tool
	if err := decodeInto(raw, &tool); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(tool.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(tool.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if tool.CommissionRate < 0 || tool.CommissionRate > 100 {
		return nil, fmt.Errorf("%w: commission rate must be within [0, 100]", ErrValidation)
	}

	if err := s.writeDoc(nsTools, id, raw); err != nil {
		return nil, err
	}
	return &tool, nil
}

// DeleteTool removes a tool record. Deleting a missing id returns
// ErrNotFound rather than succeeding silently.
func (s *Store) DeleteTool(ctx context.Context, id string) error {
	mu := s.nsLock(nsTools)
	mu.Lock()
	defer mu.Unlock()

	if err := s.deleteDoc(nsTools, id); err != nil {
		return err
	}
	s.logger.Debug("tool deleted", "tool_id", id)
	return nil
}

// matchesToolFilter applies the equality and search predicates.
func matchesToolFilter(tool *model.Tool, filter model.ToolFilter) bool {
	if filter.Category != "" && tool.Category != filter.Category {
		return false
	}
	if filter.Type != "" && tool.Type != filter.Type {
		return false
	}
	if filter.Status != "" && tool.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(tool.Name), needle) &&
			!strings.Contains(strings.ToLower(tool.Description), needle) {
			return false
		}
	}
	return true
}
