package classifier

import (
	"context"

	"github.com/jonreiter/govader"
)

// VADERClassifier scores text with the VADER lexicon. It needs no model
// download and no network, which makes it the fallback when the transformer
// pipeline is unavailable.
type VADERClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVADERClassifier() *VADERClassifier {
	return &VADERClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VADERClassifier) Classify(_ context.Context, texts []string) ([]Prediction, error) {
	predictions := make([]Prediction, 0, len(texts))
	for _, text := range texts {
		plainText := CleanPostText(text)
		if plainText == "" {
			predictions = append(predictions, Prediction{Label: "neutral", Confidence: 0.0})
			continue
		}

		scores := v.analyzer.PolarityScores(plainText)
		predictions = append(predictions, predictionFromCompound(scores.Compound))
	}
	return predictions, nil
}

// predictionFromCompound buckets a VADER compound score into a label and
// reuses the score magnitude as the confidence stand-in.
func predictionFromCompound(compound float64) Prediction {
	var label string
	switch {
	case compound >= 0.20:
		label = "positive"
	case compound <= -0.20:
		label = "negative"
	default:
		label = "neutral"
	}

	confidence := compound
	if confidence < 0 {
		confidence = -confidence
	}
	if confidence > 1 {
		confidence = 1
	}

	return Prediction{Label: label, Confidence: confidence}
}
