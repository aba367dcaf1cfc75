package clients

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DEEPSEEK_BASE_URL      = "https://api.deepseek.com"
	deepSeekRequestTimeout = 60 * time.Second
)

var (
	deepSeekClientInstance *DeepSeekClient
	deepSeekOnce           sync.Once
)

// DeepSeekClient wraps the OpenAI-compatible DeepSeek chat API used for the
// background personality analysis. A missing key leaves the client nil, which
// disables the feature rather than failing startup.
type DeepSeekClient struct {
	Client *openai.Client
}

func GetDeepSeekClient() *DeepSeekClient {
	deepSeekOnce.Do(func() {
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			slog.Warn("[DeepSeekClient] DEEPSEEK_API_KEY not set, personality analysis disabled")
			return
		}

		baseURL := os.Getenv("DEEPSEEK_BASE_URL")
		if baseURL == "" {
			baseURL = DEEPSEEK_BASE_URL
		}

		client := openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithRequestTimeout(deepSeekRequestTimeout),
		)

		deepSeekClientInstance = &DeepSeekClient{Client: client}
		slog.Info("[DeepSeekClient] Client initialized",
			slog.String("base_url", baseURL),
			slog.Duration("timeout", deepSeekRequestTimeout))
	})
	return deepSeekClientInstance
}
