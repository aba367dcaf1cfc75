package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	remoteMaxRetries     = 5
	remoteInitialBackoff = 1 * time.Second
	remoteUserAgent      = "sentiscope-client/1.0 (+https://github.com/spacesedan/sentiscope)"
)

type remoteBatchRequest struct {
	Texts []string `json:"texts"`
}

type remoteBatchResponse struct {
	Results []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// RemoteClassifier calls a hosted inference endpoint that classifies a batch
// of texts per request.
type RemoteClassifier struct {
	endpoint string
	client   *http.Client
}

func NewRemoteClassifier(endpoint string, timeout time.Duration) *RemoteClassifier {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	slog.Info("[RemoteClassifier] Initializing client",
		slog.String("endpoint", endpoint),
		slog.Duration("timeout", timeout))
	return &RemoteClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *RemoteClassifier) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = CleanPostText(text)
	}

	start := time.Now()
	var result remoteBatchResponse
	if err := r.postJSON(ctx, remoteBatchRequest{Texts: cleaned}, &result); err != nil {
		slog.Error("[RemoteClassifier] Batch request failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}

	if len(result.Results) != len(texts) {
		return nil, fmt.Errorf("[RemoteClassifier] unexpected result size: got %d, want %d",
			len(result.Results), len(texts))
	}

	predictions := make([]Prediction, len(texts))
	for i, res := range result.Results {
		predictions[i] = Prediction{
			Label:      NormalizeLabel(res.Label),
			Confidence: res.Score,
		}
	}

	slog.Info("[RemoteClassifier] Batch request successful",
		slog.Int("texts", len(texts)),
		slog.Duration("elapsed", time.Since(start)))
	return predictions, nil
}

func (r *RemoteClassifier) postJSON(ctx context.Context, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", remoteUserAgent)

	resp, err := r.doWithRetry(req)
	if err != nil {
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (r *RemoteClassifier) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := remoteInitialBackoff

	for attempt := 0; attempt < remoteMaxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}
		resp, err = r.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[RemoteClassifier] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", retryErrMsg(err, resp)))

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if err == nil {
		err = fmt.Errorf("exhausted retries against %s", r.endpoint)
	}
	return resp, err
}

func retryErrMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
