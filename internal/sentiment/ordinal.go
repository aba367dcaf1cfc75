package sentiment

// OrdinalTable maps classifier labels to signed ranks used to order posts by
// positivity. The label set is owned by the classifier, not by this package,
// so the table is configuration: a relabeled or extended model only needs a
// new table, not code changes.
type OrdinalTable struct {
	Ranks map[string]int

	// PositiveLabel and NegativeLabel name the two polarity labels the
	// narrative comparison is built on. Other labels still get counted,
	// they just sit out that comparison.
	PositiveLabel string
	NegativeLabel string
}

// DefaultOrdinalTable covers the three-way labeling used by the stock
// sentiment models.
func DefaultOrdinalTable() OrdinalTable {
	return OrdinalTable{
		Ranks: map[string]int{
			"positive": 1,
			"neutral":  0,
			"negative": -1,
		},
		PositiveLabel: "positive",
		NegativeLabel: "negative",
	}
}

// Rank returns the ordinal for label and whether the label is configured.
// Unknown labels report false and get no say in extremum selection while
// configured labels are present.
func (t OrdinalTable) Rank(label string) (int, bool) {
	r, ok := t.Ranks[label]
	return r, ok
}
