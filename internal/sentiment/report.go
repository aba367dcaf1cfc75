package sentiment

import (
	"errors"
	"fmt"
)

// ErrInvalidHandle is returned when a profile is requested for an empty
// handle.
var ErrInvalidHandle = errors.New("handle must not be empty")

// AssembleProfile turns an aggregate into the final SentimentProfile for
// handle, including the derived narrative summary. Display metadata is passed
// through unchanged. Apart from the empty-handle check it never fails: empty
// aggregates degrade to the neutral, zero-confidence profile.
//
// Assembly is a pure function of its input: the same aggregate always yields
// the same profile. AnalyzedAt is a persistence concern and gets stamped by
// whoever saves the profile.
func AssembleProfile(handle string, meta DisplayMeta, agg Aggregate, table OrdinalTable) (SentimentProfile, error) {
	if handle == "" {
		return SentimentProfile{}, ErrInvalidHandle
	}

	userName := meta.UserName
	if userName == "" {
		userName = handle
	}

	return SentimentProfile{
		Handle:            handle,
		UserName:          userName,
		AvatarURL:         meta.AvatarURL,
		TotalAnalyzed:     agg.TotalAnalyzed,
		Counts:            agg.Counts,
		AverageConfidence: agg.AverageConfidence,
		MostPositive:      agg.MostPositive,
		MostNegative:      agg.MostNegative,
		NarrativeSummary:  NarrativeSummary(agg, table),
	}, nil
}

// NarrativeSummary derives the human readable summary sentence from the
// aggregate. It is recomputable at any time from counts, total and average
// confidence alone.
func NarrativeSummary(agg Aggregate, table OrdinalTable) string {
	positive := agg.Counts[table.PositiveLabel]
	negative := agg.Counts[table.NegativeLabel]

	return fmt.Sprintf("Analizados %d posts. Sentimiento general: %s. Confianza promedio: %.1f%%.",
		agg.TotalAnalyzed,
		classifyOverall(positive, negative),
		agg.AverageConfidence*100)
}

// classifyOverall buckets the polarity counts into the overall sentiment
// wording. A 1.5x lead earns the "muy" qualifier; equal counts are neutral.
func classifyOverall(positive, negative int) string {
	switch {
	case positive == 0 && negative == 0:
		return "neutral"
	case float64(positive) > float64(negative)*1.5:
		return "muy positivo"
	case positive > negative:
		return "positivo"
	case float64(negative) > float64(positive)*1.5:
		return "muy negativo"
	case negative > positive:
		return "negativo"
	default:
		return "neutral"
	}
}
