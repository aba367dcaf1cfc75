package sentiment

import "log/slog"

// Aggregate folds an ordered sequence of labeled posts into per-label counts,
// an average confidence, and the extremal posts under table's ordering. It is
// a pure function of its input and never fails: out-of-range confidences are
// clamped to [0,1] with a warning, the empty sequence yields a zero aggregate
// with no extrema.
func AggregatePosts(posts []LabeledPost, table OrdinalTable) Aggregate {
	agg := Aggregate{
		TotalAnalyzed: len(posts),
		Counts:        make(map[string]int, 4),
	}
	if len(posts) == 0 {
		// Average defined as 0.0 on empty input so no NaN leaks into
		// the report.
		return agg
	}

	clamped := make([]LabeledPost, len(posts))
	copy(clamped, posts)

	var totalConfidence float64
	for i := range clamped {
		if c := clamped[i].Confidence; c < 0.0 || c > 1.0 {
			slog.Warn("[Aggregator] Confidence out of range, clamping",
				slog.String("post_id", clamped[i].ID),
				slog.Float64("confidence", c))
			clamped[i].Confidence = clampConfidence(c)
		}
		agg.Counts[clamped[i].Label]++
		totalConfidence += clamped[i].Confidence
	}
	agg.AverageConfidence = totalConfidence / float64(len(clamped))

	agg.MostPositive = selectExtremum(clamped, table, false)
	agg.MostNegative = selectExtremum(clamped, table, true)
	return agg
}

// selectExtremum picks the most positive (or, reversed, most negative) post.
// Ordering: label ordinal first, then higher confidence, then first in input.
// Posts with labels outside the table only compete when no configured label
// is present at all; then they sit in a single lowest-priority bucket and
// confidence alone decides.
func selectExtremum(posts []LabeledPost, table OrdinalTable, reverse bool) *LabeledPost {
	bestIdx := -1
	bestRank := 0
	bestKnown := false

	for i := range posts {
		rank, known := table.Rank(posts[i].Label)
		if reverse {
			rank = -rank
		}
		switch {
		case bestIdx == -1:
		case known && !bestKnown:
			// A configured label displaces any unknown-label candidate.
		case !known && bestKnown:
			continue
		case known && bestKnown && rank != bestRank:
			if rank < bestRank {
				continue
			}
		default:
			// Same bucket: higher confidence wins, first occurrence
			// breaks remaining ties.
			if posts[i].Confidence <= posts[bestIdx].Confidence {
				continue
			}
		}
		bestIdx, bestRank, bestKnown = i, rank, known
	}

	if bestIdx == -1 {
		return nil
	}
	winner := posts[bestIdx]
	return &winner
}

func clampConfidence(c float64) float64 {
	if c < 0.0 {
		return 0.0
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}
