// Package mockdata generates the fabricated signals the system has no
// real feed for: user ratings and pick-one randomness. Keeping them in
// one clearly named collaborator makes sure fabricated numbers are
// never mistaken for real aggregation output, and lets tests inject a
// seeded generator for reproducible results.
package mockdata

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

// Generator produces stand-in metric values.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator with a time-derived seed.
func New() *Generator {
	return NewWithSeed(rand.Int63())
}

// NewWithSeed creates a Generator with a fixed seed for tests.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Rating returns a stable fabricated user rating in [3.5, 5.0] for a
// tool. The value is derived from the tool id, not the RNG, so the
// same tool always rates the same and rankings stay reproducible.
func (g *Generator) Rating(toolID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(toolID))
	// Map the hash onto 3.5 + [0, 1.5].
	return 3.5 + float64(h.Sum32()%151)/100.0
}

// Pick returns a random index in [0, n). Returns 0 when n <= 1.
func (g *Generator) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// Chance reports true with probability p in [0, 1].
func (g *Generator) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

// VisitorStats is a fabricated site-visitor rollup. There is no real
// traffic feed; every field is a generated stand-in.
type VisitorStats struct {
	TotalUsers        int     `json:"total_users"`
	NewUsers          int     `json:"new_users"`
	ReturningUsers    int     `json:"returning_users"`
	AvgSessionSeconds int     `json:"avg_session_seconds"`
	BounceRate        float64 `json:"bounce_rate"`
}

// PageviewStats is a fabricated pageview rollup.
type PageviewStats struct {
	TotalPageviews  int     `json:"total_pageviews"`
	UniquePageviews int     `json:"unique_pageviews"`
	PerSession      float64 `json:"avg_pageviews_per_session"`
}

// Visitors fabricates visitor numbers for a trailing period: roughly
// 40-60 visitors per day, with an occasional day tripled to look like
// a traffic spike. Totals always satisfy new + returning = total.
func (g *Generator) Visitors(periodDays int) VisitorStats {
	if periodDays < 1 {
		periodDays = 1
	}

	total := 0
	for i := 0; i < periodDays; i++ {
		day := 40 + g.Pick(21)
		if g.Chance(0.1) {
			day *= 3
		}
		total += day
	}

	newUsers := total * (25 + g.Pick(11)) / 100
	return VisitorStats{
		TotalUsers:        total,
		NewUsers:          newUsers,
		ReturningUsers:    total - newUsers,
		AvgSessionSeconds: 180 + g.Pick(120),
		BounceRate:        0.25 + float64(g.Pick(20))/100,
	}
}

// Pageviews fabricates pageview numbers for a trailing period, scaled
// the same way as Visitors.
func (g *Generator) Pageviews(periodDays int) PageviewStats {
	if periodDays < 1 {
		periodDays = 1
	}

	total := 0
	for i := 0; i < periodDays; i++ {
		day := 90 + g.Pick(61)
		if g.Chance(0.1) {
			day *= 3
		}
		total += day
	}

	return PageviewStats{
		TotalPageviews:  total,
		UniquePageviews: total * (55 + g.Pick(10)) / 100,
		PerSession:      2.0 + float64(g.Pick(10))/10,
	}
}
