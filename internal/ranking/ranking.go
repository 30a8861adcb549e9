// Package ranking derives comparable scores for tools from their
// accumulated click, conversion, and revenue signals.
package ranking

import (
	"math"
	"sort"

	"github.com/toolvane/toolvane/internal/model"
)

// Scoring weights. These are fixed policy, not tuned parameters: the
// same weights must apply everywhere a score is computed so rankings
// stay reproducible. ConversionRate is a fraction in [0, 1].
const (
	WeightClicks         = 0.3
	WeightConversions    = 10.0
	WeightRevenue        = 5.0
	WeightRating         = 20.0
	WeightConversionRate = 15.0
)

// Commission heuristic policy constants.
const (
	// MinCommissionRate and MaxCommissionRate bound every estimate.
	MinCommissionRate = 5.0
	MaxCommissionRate = 25.0

	// RaiseThreshold: more than one conversion per click is a
	// data-quality signal that the rate can be pushed up.
	RaiseThreshold = 1.0
	raiseDelta     = 5.0

	// LowerThreshold: a poor conversion rate lowers the rate.
	LowerThreshold = 0.2
	lowerDelta     = 3.0
)

// Score computes the weighted ranking score for a stats record.
// Missing or malformed stats must never break ranking, so NaN and Inf
// inputs are treated as zero.
func Score(stats model.ToolStats) float64 {
	return sanitize(float64(stats.Clicks))*WeightClicks +
		sanitize(float64(stats.Conversions))*WeightConversions +
		sanitize(stats.Revenue)*WeightRevenue +
		sanitize(stats.Rating)*WeightRating +
		sanitize(stats.ConversionRate)*WeightConversionRate
}

// Entry pairs a tool with its stats for ranking.
type Entry struct {
	Tool  *model.Tool
	Stats model.ToolStats
}

// Rank sorts entries by descending score and assigns 1-based ranks.
// Ties break by ascending tool id so repeated runs over the same input
// always produce the same order.
func Rank(entries []Entry) []model.RankedTool {
	ranked := make([]model.RankedTool, 0, len(entries))
	for _, entry := range entries {
		ranked = append(ranked, model.RankedTool{
			ToolID: entry.Tool.ID,
			Name:   entry.Tool.Name,
			Score:  Score(entry.Stats),
			Stats:  entry.Stats,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ToolID < ranked[j].ToolID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// RankCategories aggregates ranked tools into per-category totals,
// ordered by descending summed score with name tie-break.
func RankCategories(tools []*model.Tool, ranked []model.RankedTool) []model.CategoryRank {
	byID := make(map[string]*model.Tool, len(tools))
	for _, tool := range tools {
		byID[tool.ID] = tool
	}

	scores := make(map[string]*model.CategoryRank)
	for _, row := range ranked {
		tool, ok := byID[row.ToolID]
		if !ok {
			continue
		}
		category := tool.Category
		if category == "" {
			category = "uncategorized"
		}
		agg, ok := scores[category]
		if !ok {
			agg = &model.CategoryRank{Category: category}
			scores[category] = agg
		}
		agg.Score += row.Score
		agg.Tools++
	}

	categories := make([]model.CategoryRank, 0, len(scores))
	for _, agg := range scores {
		categories = append(categories, *agg)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].Score != categories[j].Score {
			return categories[i].Score > categories[j].Score
		}
		return categories[i].Category < categories[j].Category
	})
	for i := range categories {
		categories[i].Rank = i + 1
	}
	return categories
}

// EstimateOptimalCommission applies the fixed rate-adjustment policy.
// A conversion rate above RaiseThreshold bumps the rate by raiseDelta;
// below LowerThreshold it drops by lowerDelta. NaN or negative rates
// are not optimizable and leave the base unchanged. The result is
// always clamped to [MinCommissionRate, MaxCommissionRate].
func EstimateOptimalCommission(baseRate, conversionRate float64) float64 {
	if math.IsNaN(baseRate) || math.IsInf(baseRate, 0) {
		baseRate = MinCommissionRate
	}

	switch {
	case math.IsNaN(conversionRate) || conversionRate < 0:
		// Not optimizable; keep the base.
	case conversionRate > RaiseThreshold:
		baseRate += raiseDelta
	case conversionRate < LowerThreshold:
		baseRate -= lowerDelta
	}

	return clamp(baseRate, MinCommissionRate, MaxCommissionRate)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
