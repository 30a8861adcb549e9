package store

import (
	"context"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// DateFormat is the ISO date key used for daily stat buckets.
const DateFormat = "2006-01-02"

// AddClick appends a click event. Events are immutable once recorded.
func (s *Store) AddClick(ctx context.Context, event *model.ClickEvent) (*model.ClickEvent, error) {
	mu := s.nsLock(nsTracking)
	mu.Lock()
	defer mu.Unlock()

	if event.ID == "" {
		event.ID = s.NewID("click")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ClickType == "" {
		event.ClickType = model.ClickTypeDirect
	}

	if err := s.writeDoc(nsTracking, event.ID, event); err != nil {
		return nil, err
	}
	return event, nil
}

// AddConversion appends a conversion event with its derived commission.
func (s *Store) AddConversion(ctx context.Context, event *model.ConversionEvent) (*model.ConversionEvent, error) {
	mu := s.nsLock(nsConversions)
	mu.Lock()
	defer mu.Unlock()

	if event.ID == "" {
		event.ID = s.NewID("conv")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := s.writeDoc(nsConversions, event.ID, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ListClicks returns all click events at or after since.
func (s *Store) ListClicks(ctx context.Context, since time.Time) ([]*model.ClickEvent, error) {
	ids, err := s.listIDs(nsTracking)
	if err != nil {
		return nil, err
	}

	events := make([]*model.ClickEvent, 0, len(ids))
	for _, id := range ids {
		var event model.ClickEvent
		if err := s.readDoc(nsTracking, id, &event); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if !event.Timestamp.Before(since) {
			e := event
			events = append(events, &e)
		}
	}
	return events, nil
}

// ListConversions returns all conversion events at or after since.
func (s *Store) ListConversions(ctx context.Context, since time.Time) ([]*model.ConversionEvent, error) {
	ids, err := s.listIDs(nsConversions)
	if err != nil {
		return nil, err
	}

	events := make([]*model.ConversionEvent, 0, len(ids))
	for _, id := range ids {
		var event model.ConversionEvent
		if err := s.readDoc(nsConversions, id, &event); err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if !event.Timestamp.Before(since) {
			e := event
			events = append(events, &e)
		}
	}
	return events, nil
}

// IncrementDaily bumps today's bucket in the daily stats document.
// The document is read, merged, and rewritten under the analytics lock,
// so concurrent increments never lose updates. Buckets only grow within
// a day; they are created lazily on the first event of that day.
func (s *Store) IncrementDaily(ctx context.Context, date time.Time, clicks, conversions int64, revenue float64) error {
	mu := s.nsLock(nsAnalytics)
	mu.Lock()
	defer mu.Unlock()

	stats := make(map[string]model.DailyStat)
	if err := s.readDoc(nsAnalytics, trimExt(dailyFile), &stats); err != nil && err != ErrNotFound {
		return err
	}

	key := date.UTC().Format(DateFormat)
	bucket := stats[key]
	bucket.Clicks += clicks
	bucket.Conversions += conversions
	bucket.Revenue += revenue
	stats[key] = bucket

	return s.writeDoc(nsAnalytics, trimExt(dailyFile), stats)
}

// GetDailyStats returns the full daily stats document.
func (s *Store) GetDailyStats(ctx context.Context) (map[string]model.DailyStat, error) {
	stats := make(map[string]model.DailyStat)
	err := s.readDoc(nsAnalytics, trimExt(dailyFile), &stats)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	return stats, nil
}

// PruneEvents removes click and conversion records older than cutoff.
// Used by the retention job; returns the number of records removed.
func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0

	for _, ns := range []string{nsTracking, nsConversions} {
		mu := s.nsLock(ns)
		mu.Lock()

		ids, err := s.listIDs(ns)
		if err != nil {
			mu.Unlock()
			return removed, err
		}

		for _, id := range ids {
			var event struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if err := s.readDoc(ns, id, &event); err != nil {
				continue
			}
			if event.Timestamp.Before(cutoff) {
				if err := s.deleteDoc(ns, id); err == nil {
					removed++
				}
			}
		}
		mu.Unlock()
	}

	return removed, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(".json")]
}
