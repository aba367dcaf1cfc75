package personality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const (
	maxCuratedPosts = 15
	deepSeekModel   = "deepseek-chat"
)

const systemPrompt = `Eres un experto psicólogo que analiza personalidades a través del contenido de redes sociales.
Tu trabajo es crear un perfil de personalidad basado en los posts que te proporcionen.

Debes responder en español con un análisis de 3-4 párrafos que incluya:
1. Rasgos de personalidad principales
2. Estilo de comunicación y temas de interés
3. Patrones emocionales y valores que se reflejan
4. Una conclusión sobre su presencia en redes sociales

Sé directo, profesional y empático. Usa un tono cálido pero analítico.`

// Analyzer generates a personality profile from a user's posts through the
// DeepSeek chat API.
type Analyzer struct {
	client *clients.DeepSeekClient
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{client: clients.GetDeepSeekClient()}
}

// Available reports whether the API is configured.
func (a *Analyzer) Available() bool {
	return a.client != nil && a.client.Client != nil
}

// AnalyzePersonality builds the curated prompt from the posts and asks the
// model for the profile. Returns an empty string when no post has usable
// text.
func (a *Analyzer) AnalyzePersonality(ctx context.Context, posts []sentiment.LabeledPost, userName string) (string, error) {
	if !a.Available() {
		return "", fmt.Errorf("[Personality] DeepSeek API is not configured")
	}

	curated := CuratePosts(posts, maxCuratedPosts)
	if curated == "" {
		slog.Warn("[Personality] No usable post text, skipping analysis")
		return "", nil
	}

	if userName == "" {
		userName = "Usuario"
	}
	userPrompt := fmt.Sprintf(`Analiza la personalidad de %s basándote en estos posts de Bluesky:

%s

Proporciona un análisis de personalidad completo y perspicaz.`, userName, curated)

	chatCompletion, err := a.client.Client.Chat.Completions.New(ctx,
		openai.ChatCompletionNewParams{
			Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			}),
			Model:       openai.F(openai.ChatModel(deepSeekModel)),
			Temperature: openai.Float(0.7),
			MaxTokens:   openai.Int(800),
		})
	if err != nil {
		return "", fmt.Errorf("[Personality] chat completion failed: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("[Personality] model returned no choices")
	}

	analysis := strings.TrimSpace(chatCompletion.Choices[0].Message.Content)
	slog.Info("[Personality] Analysis generated",
		slog.Int("chars", len(analysis)))
	return analysis, nil
}

// CuratePosts selects up to maxPosts posts and formats their text as a
// numbered list for the prompt. Empty posts are skipped.
func CuratePosts(posts []sentiment.LabeledPost, maxPosts int) string {
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}

	var lines []string
	for i, post := range posts {
		text := strings.TrimSpace(post.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, text))
	}
	return strings.Join(lines, "\n\n")
}
