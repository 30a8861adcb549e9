package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// Snapshot documents are written once per job run and never rewritten.
// Each snapshot type has its own namespace so concurrent jobs of
// different types never contend on the same directory lock.

// SaveOptimizationRun persists an hourly optimization snapshot.
func (s *Store) SaveOptimizationRun(ctx context.Context, run *model.OptimizationRun) error {
	mu := s.nsLock(nsOptimizations)
	mu.Lock()
	defer mu.Unlock()

	if run.ID == "" {
		run.ID = s.NewID("optimization")
	}
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}
	return s.writeDoc(nsOptimizations, run.ID, run)
}

// CountOptimizationRuns counts optimization snapshots generated at or
// after since. Reports use it to show how often the optimizer ran
// within their period.
func (s *Store) CountOptimizationRuns(ctx context.Context, since time.Time) (int, error) {
	ids, err := s.listIDs(nsOptimizations)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		var run model.OptimizationRun
		if err := s.readDoc(nsOptimizations, id, &run); err != nil {
			continue
		}
		if !run.GeneratedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// SaveRankingRun persists a daily ranking snapshot, keyed by date so a
// re-run on the same day overwrites that day's snapshot.
func (s *Store) SaveRankingRun(ctx context.Context, run *model.RankingRun) error {
	mu := s.nsLock(nsRankings)
	mu.Lock()
	defer mu.Unlock()

	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = "rankings_" + run.GeneratedAt.Format(DateFormat)
	}
	return s.writeDoc(nsRankings, run.ID, run)
}

// LatestRankingRun returns the most recent ranking snapshot, or
// ErrNotFound when no ranking job has run yet.
func (s *Store) LatestRankingRun(ctx context.Context) (*model.RankingRun, error) {
	ids, err := s.listIDs(nsRankings)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	// Date-suffixed ids sort chronologically.
	var run model.RankingRun
	if err := s.readDoc(nsRankings, ids[len(ids)-1], &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveTrending persists the trending tool list computed by the hourly job.
func (s *Store) SaveTrending(ctx context.Context, ranked []model.RankedTool) error {
	mu := s.nsLock(nsTrending)
	mu.Lock()
	defer mu.Unlock()

	doc := model.TrendingSnapshot{
		ID:          s.NewID("trending"),
		Tools:       ranked,
		GeneratedAt: time.Now().UTC(),
	}
	return s.writeDoc(nsTrending, doc.ID, doc)
}

// LatestTrending returns the most recent trending snapshot, or
// ErrNotFound before the first hourly run.
func (s *Store) LatestTrending(ctx context.Context) (*model.TrendingSnapshot, error) {
	ids, err := s.listIDs(nsTrending)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	// Millis-suffixed ids of equal prefix sort chronologically.
	var snapshot model.TrendingSnapshot
	if err := s.readDoc(nsTrending, ids[len(ids)-1], &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SaveReport persists a generated report.
func (s *Store) SaveReport(ctx context.Context, report *model.Report) error {
	mu := s.nsLock(nsReports)
	mu.Lock()
	defer mu.Unlock()

	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	if report.ID == "" {
		report.ID = s.NewID(report.Type)
	}
	return s.writeDoc(nsReports, report.ID, report)
}

// ListReports returns stored reports, newest first, optionally filtered
// by type and capped at limit (0 means no cap).
func (s *Store) ListReports(ctx context.Context, reportType string, limit int) ([]*model.Report, error) {
	ids, err := s.listIDs(nsReports)
	if err != nil {
		return nil, err
	}

	reports := make([]*model.Report, 0, len(ids))
	for _, id := range ids {
		var report model.Report
		if err := s.readDoc(nsReports, id, &report); err != nil {
			continue
		}
		if reportType != "" && report.Type != reportType {
			continue
		}
		r := report
		reports = append(reports, &r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})

	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// SaveEmergency persists a monitor-triggered emergency optimization.
func (s *Store) SaveEmergency(ctx context.Context, opt *model.EmergencyOptimization) error {
	mu := s.nsLock(nsEmergency)
	mu.Lock()
	defer mu.Unlock()

	if opt.ID == "" {
		opt.ID = s.NewID("emergency")
	}
	if opt.GeneratedAt.IsZero() {
		opt.GeneratedAt = time.Now().UTC()
	}
	return s.writeDoc(nsEmergency, opt.ID, opt)
}

// ListEmergencies returns all recorded emergency optimizations.
func (s *Store) ListEmergencies(ctx context.Context) ([]*model.EmergencyOptimization, error) {
	ids, err := s.listIDs(nsEmergency)
	if err != nil {
		return nil, err
	}

	emergencies := make([]*model.EmergencyOptimization, 0, len(ids))
	for _, id := range ids {
		var opt model.EmergencyOptimization
		if err := s.readDoc(nsEmergency, id, &opt); err != nil {
			continue
		}
		e := opt
		emergencies = append(emergencies, &e)
	}
	return emergencies, nil
}

// SaveBackup persists a full-state backup snapshot.
func (s *Store) SaveBackup(ctx context.Context, backup *model.Backup) error {
	mu := s.nsLock(nsBackups)
	mu.Lock()
	defer mu.Unlock()

	if backup.ID == "" {
		backup.ID = s.NewID("backup")
	}
	if backup.GeneratedAt.IsZero() {
		backup.GeneratedAt = time.Now().UTC()
	}
	return s.writeDoc(nsBackups, backup.ID, backup)
}

// PruneBackups removes backup snapshots older than cutoff and returns
// how many were removed.
func (s *Store) PruneBackups(ctx context.Context, cutoff time.Time) (int, error) {
	mu := s.nsLock(nsBackups)
	mu.Lock()
	defer mu.Unlock()

	ids, err := s.listIDs(nsBackups)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		ms, ok := idMillis(id)
		if !ok {
			continue
		}
		if time.UnixMilli(ms).Before(cutoff) {
			if err := s.deleteDoc(nsBackups, id); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// idMillis extracts the epoch-millis suffix of a generated record id.
func idMillis(id string) (int64, bool) {
	idx := strings.LastIndexByte(id, '_')
	if idx < 0 {
		return 0, false
	}
	var ms int64
	for _, r := range id[idx+1:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		ms = ms*10 + int64(r-'0')
	}
	if ms == 0 {
		return 0, false
	}
	return ms, true
}
