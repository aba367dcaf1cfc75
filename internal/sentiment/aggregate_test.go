package sentiment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeled(id, label string, confidence float64) LabeledPost {
	return LabeledPost{
		Post:       Post{ID: id, Text: "post " + id},
		Label:      label,
		Confidence: confidence,
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := AggregatePosts(nil, DefaultOrdinalTable())

	assert.Equal(t, 0, agg.TotalAnalyzed)
	assert.Empty(t, agg.Counts)
	assert.Equal(t, 0.0, agg.AverageConfidence)
	assert.Nil(t, agg.MostPositive)
	assert.Nil(t, agg.MostNegative)
}

func TestAggregateCountsMatchTotal(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "positive", 0.9),
		labeled("2", "negative", 0.8),
		labeled("3", "neutral", 0.5),
		labeled("4", "positive", 0.7),
		labeled("5", "sarcastic", 0.6),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	sum := 0
	for _, n := range agg.Counts {
		sum += n
	}
	assert.Equal(t, len(posts), agg.TotalAnalyzed)
	assert.Equal(t, agg.TotalAnalyzed, sum)
	assert.Equal(t, 2, agg.Counts["positive"])
	assert.Equal(t, 1, agg.Counts["negative"])
	assert.Equal(t, 1, agg.Counts["neutral"])
	assert.Equal(t, 1, agg.Counts["sarcastic"])
}

func TestAggregateAverageConfidence(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "positive", 0.6),
		labeled("2", "negative", 0.8),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())
	assert.InDelta(t, 0.7, agg.AverageConfidence, 1e-9)
}

func TestAggregateAverageAlwaysInRange(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "positive", 1.4),
		labeled("2", "negative", -0.3),
		labeled("3", "neutral", 0.5),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())
	assert.GreaterOrEqual(t, agg.AverageConfidence, 0.0)
	assert.LessOrEqual(t, agg.AverageConfidence, 1.0)
}

func TestAggregateClampsOutOfRangeConfidence(t *testing.T) {
	// Scenario: confidence 1.4 is clamped to 1.0 before averaging.
	posts := []LabeledPost{
		labeled("1", "positive", 1.4),
		labeled("2", "positive", 0.6),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())
	assert.InDelta(t, 0.8, agg.AverageConfidence, 1e-9)
	require.NotNil(t, agg.MostPositive)
	assert.Equal(t, 1.0, agg.MostPositive.Confidence)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	posts := []LabeledPost{labeled("1", "positive", 1.4)}
	AggregatePosts(posts, DefaultOrdinalTable())
	assert.Equal(t, 1.4, posts[0].Confidence)
}

func TestAggregateExtrema(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "neutral", 0.99),
		labeled("2", "positive", 0.7),
		labeled("3", "positive", 0.9),
		labeled("4", "negative", 0.6),
		labeled("5", "negative", 0.8),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	require.NotNil(t, agg.MostPositive)
	require.NotNil(t, agg.MostNegative)
	assert.Equal(t, "3", agg.MostPositive.ID)
	assert.Equal(t, "5", agg.MostNegative.ID)
}

func TestAggregateTieBreakIsFirstOccurrence(t *testing.T) {
	posts := []LabeledPost{
		labeled("first", "positive", 0.9),
		labeled("second", "positive", 0.9),
		labeled("third", "negative", 0.4),
		labeled("fourth", "negative", 0.4),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	require.NotNil(t, agg.MostPositive)
	require.NotNil(t, agg.MostNegative)
	assert.Equal(t, "first", agg.MostPositive.ID)
	assert.Equal(t, "third", agg.MostNegative.ID)
}

func TestAggregateUnknownLabelCountedButExcludedFromExtrema(t *testing.T) {
	// Scenario: a label outside the ordinal table shows up in counts but
	// never beats a configured label in extremum selection.
	posts := []LabeledPost{
		labeled("1", "sarcastic", 1.0),
		labeled("2", "neutral", 0.3),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	assert.Equal(t, 1, agg.Counts["sarcastic"])
	require.NotNil(t, agg.MostPositive)
	require.NotNil(t, agg.MostNegative)
	assert.Equal(t, "2", agg.MostPositive.ID)
	assert.Equal(t, "2", agg.MostNegative.ID)
}

func TestAggregateAllUnknownLabelsStillYieldExtrema(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "sarcastic", 0.4),
		labeled("2", "ironic", 0.9),
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	require.NotNil(t, agg.MostPositive)
	require.NotNil(t, agg.MostNegative)
	assert.Equal(t, "2", agg.MostPositive.ID)
	assert.Equal(t, "2", agg.MostNegative.ID)
}

func TestAggregateIdempotent(t *testing.T) {
	posts := []LabeledPost{
		labeled("1", "positive", 0.9),
		labeled("2", "negative", 0.8),
		labeled("3", "neutral", 0.5),
	}
	table := DefaultOrdinalTable()

	first := AggregatePosts(posts, table)
	second := AggregatePosts(posts, table)
	assert.Equal(t, first, second)
}

func TestAggregateCustomOrdinalTable(t *testing.T) {
	// A five-way label set, no code changes needed.
	table := OrdinalTable{
		Ranks: map[string]int{
			"very_positive": 2,
			"positive":      1,
			"neutral":       0,
			"negative":      -1,
			"very_negative": -2,
		},
		PositiveLabel: "positive",
		NegativeLabel: "negative",
	}
	posts := []LabeledPost{
		labeled("1", "positive", 0.99),
		labeled("2", "very_positive", 0.5),
		labeled("3", "very_negative", 0.5),
		labeled("4", "negative", 0.99),
	}

	agg := AggregatePosts(posts, table)

	require.NotNil(t, agg.MostPositive)
	require.NotNil(t, agg.MostNegative)
	assert.Equal(t, "2", agg.MostPositive.ID)
	assert.Equal(t, "3", agg.MostNegative.ID)
}

func TestAggregateScenarioAllPositive(t *testing.T) {
	var posts []LabeledPost
	for i := 0; i < 10; i++ {
		posts = append(posts, labeled(fmt.Sprintf("%d", i), "positive", 0.9))
	}

	agg := AggregatePosts(posts, DefaultOrdinalTable())

	assert.Equal(t, map[string]int{"positive": 10}, agg.Counts)
	assert.InDelta(t, 0.9, agg.AverageConfidence, 1e-9)
}
