// Package store implements the flat-file JSON record store.
//
// Each entity kind lives under its own directory below the data root,
// one document per record (automation rules and settings are single
// documents). Every mutating operation persists durably before it
// returns; writes within a namespace are serialized by a per-namespace
// mutex so the read-merge-write pattern never interleaves.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Common errors for store operations.
var (
	// ErrNotFound signals a reference to a nonexistent record.
	ErrNotFound = errors.New("record not found")
	// ErrValidation signals malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
)

// Namespaces (directories under the data root).
const (
	nsTools         = "tools"
	nsTracking      = "tracking"
	nsConversions   = "conversions"
	nsAnalytics     = "analytics"
	nsOptimizations = "automation/optimizations"
	nsRankings      = "automation/rankings"
	nsReports       = "automation/reports"
	nsTrending      = "automation/trending"
	nsEmergency     = "automation/emergency"
	nsBackups       = "backups"

	// Single-document namespaces.
	nsRules    = "rules"
	nsSettings = "settings"

	rulesFile    = "automation-rules.json"
	settingsFile = "settings.json"
	dailyFile    = "daily-stats.json"
)

var allDirs = []string{
	nsTools, nsTracking, nsConversions, nsAnalytics,
	nsOptimizations, nsRankings, nsReports, nsTrending, nsEmergency,
	nsBackups,
}

// Store provides durable CRUD over the flat-file layout.
type Store struct {
	root   string
	logger *slog.Logger

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	idMu   sync.Mutex
	lastID map[string]int64
}

// New creates a Store rooted at dir, creating the directory layout.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, ns := range allDirs {
		if err := os.MkdirAll(filepath.Join(dir, ns), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", ns, err)
		}
	}

	return &Store{
		root:   dir,
		logger: logger.With("component", "store"),
		locks:  make(map[string]*sync.Mutex),
		lastID: make(map[string]int64),
	}, nil
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// nsLock returns the mutex serializing writes for a namespace.
func (s *Store) nsLock(ns string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	mu, ok := s.locks[ns]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[ns] = mu
	}
	return mu
}

// NewID generates a record id in the form {prefix}_{epoch-millis}.
// Millisecond values are forced strictly increasing per prefix so two
// records created in the same millisecond never collide.
func (s *Store) NewID(prefix string) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	ms := time.Now().UnixMilli()
	if last := s.lastID[prefix]; ms <= last {
		ms = last + 1
	}
	s.lastID[prefix] = ms

	return prefix + "_" + strconv.FormatInt(ms, 10)
}

// docPath returns the file path backing a record.
func (s *Store) docPath(ns, id string) string {
	return filepath.Join(s.root, ns, id+".json")
}

// readDoc loads one record into v.
func (s *Store) readDoc(ns, id string, v any) error {
	data, err := os.ReadFile(s.docPath(ns, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s/%s: %w", ns, id, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", ns, id, err)
	}
	return nil
}

// writeDoc persists one record durably: the document is written to a
// temp file, fsynced, then renamed over the target so readers never
// observe a partial write.
func (s *Store) writeDoc(ns, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ns, id, err)
	}

	target := s.docPath(ns, id)
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+id+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp for %s/%s: %w", ns, id, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s/%s: %w", ns, id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s/%s: %w", ns, id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s/%s: %w", ns, id, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s/%s: %w", ns, id, err)
	}
	return nil
}

// deleteDoc removes a record. Deleting a missing record is an error,
// so a double delete is observable.
func (s *Store) deleteDoc(ns, id string) error {
	err := os.Remove(s.docPath(ns, id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", ns, id, err)
	}
	return nil
}

// listIDs returns all record ids in a namespace, sorted ascending.
func (s *Store) listIDs(ns string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, ns))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ns, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	sort.Strings(ids)
	return ids, nil
}

// mergeRaw applies a shallow merge of partial onto the stored record
// and stamps updated_at. Arrays and nested objects in partial replace
// the stored field wholesale. Nothing is written: the caller decodes
// and validates the merged document before persisting it, so a
// rejected merge never reaches disk.
func (s *Store) mergeRaw(ns, id string, partial map[string]any, protected ...string) (map[string]any, error) {
	var current map[string]any
	if err := s.readDoc(ns, id, &current); err != nil {
		return nil, err
	}

	for k, v := range partial {
		if isProtectedField(k, protected) {
			continue
		}
		current[k] = v
	}
	current["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	return current, nil
}

func isProtectedField(k string, protected []string) bool {
	for _, p := range protected {
		if k == p {
			return true
		}
	}
	return false
}

// decodeInto converts a raw merged document into a typed record.
func decodeInto(raw map[string]any, v any) error {
	return roundTrip(raw, v)
}

// roundTrip re-encodes src as JSON and decodes it into dst.
func roundTrip(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("re-encode record: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
