package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const defaultSentimentModel = "distilbert-base-uncased-finetuned-sst-2-english"

// HugotClassifier runs a pretrained text-classification model locally through
// the hugot ONNX runtime. The model is downloaded on first use and cached in
// modelDir.
type HugotClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

// NewHugotClassifier downloads the model if needed and builds the inference
// pipeline. Callers must Close the classifier to release the ORT session.
func NewHugotClassifier(modelName, modelDir string) (*HugotClassifier, error) {
	if modelName == "" {
		modelName = defaultSentimentModel
	}

	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("[HugotClassifier] failed to create model directory: %w", err)
	}

	modelPath := filepath.Join(modelDir, filepath.Base(modelName))
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		slog.Info("[HugotClassifier] Model not found, downloading...",
			slog.String("model", modelName))
		downloaded, err := hugot.DownloadModel(modelName, modelDir, hugot.NewDownloadOptions())
		if err != nil {
			return nil, fmt.Errorf("[HugotClassifier] failed to download model: %w", err)
		}
		modelPath = downloaded
		slog.Info("[HugotClassifier] Model downloaded successfully",
			slog.String("path", modelPath))
	} else {
		slog.Info("[HugotClassifier] Using existing model",
			slog.String("path", modelPath))
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentimentClassificationPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("[HugotClassifier] failed to initialize pipeline: %w", err)
	}

	return &HugotClassifier{session: session, pipeline: pipeline}, nil
}

func (h *HugotClassifier) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Empty texts never reach the model; they classify as neutral with zero
	// confidence. Track positions so batch output lines back up.
	cleaned := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	predictions := make([]Prediction, len(texts))
	for i, text := range texts {
		plain := CleanPostText(text)
		if plain == "" {
			predictions[i] = Prediction{Label: "neutral", Confidence: 0.0}
			continue
		}
		cleaned = append(cleaned, plain)
		positions = append(positions, i)
	}

	if len(cleaned) == 0 {
		return predictions, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	output, err := h.pipeline.RunPipeline(cleaned)
	if err != nil {
		return nil, fmt.Errorf("[HugotClassifier] inference failed: %w", err)
	}

	results := output.ClassificationOutputs
	if len(results) != len(cleaned) {
		return nil, fmt.Errorf("[HugotClassifier] unexpected output size: got %d, want %d",
			len(results), len(cleaned))
	}

	for i, outputs := range results {
		if len(outputs) == 0 {
			predictions[positions[i]] = Prediction{Label: "neutral", Confidence: 0.0}
			continue
		}
		best := outputs[0]
		for _, candidate := range outputs[1:] {
			if candidate.Score > best.Score {
				best = candidate
			}
		}
		predictions[positions[i]] = Prediction{
			Label:      NormalizeLabel(best.Label),
			Confidence: float64(best.Score),
		}
	}

	return predictions, nil
}

func (h *HugotClassifier) Close() {
	if h.session != nil {
		h.session.Destroy()
	}
}
