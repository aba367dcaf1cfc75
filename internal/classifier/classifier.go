package classifier

import (
	"context"
	"strings"
)

// Prediction is a single classifier verdict for one text.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a batch of texts. Implementations may call out to a
// model service, run a local ONNX pipeline, or score locally with VADER;
// callers decide the fallback policy when a batch fails.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// NormalizeLabel maps model-specific label spellings (POSITIVE, LABEL_1, ...)
// onto the lowercase labels the ordinal table is keyed by. Unrecognized
// labels pass through lowercased so new model vocabularies stay countable.
func NormalizeLabel(label string) string {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "POSITIVE", "LABEL_1", "POS":
		return "positive"
	case "NEGATIVE", "LABEL_0", "NEG":
		return "negative"
	case "NEUTRAL", "LABEL_2":
		return "neutral"
	default:
		return strings.ToLower(strings.TrimSpace(label))
	}
}
