package main

import (
	"log/slog"
	"os"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/analysis"
	"github.com/spacesedan/sentiscope/internal/api"
	"github.com/spacesedan/sentiscope/internal/classifier"
	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/db"
	"github.com/spacesedan/sentiscope/internal/events"
	"github.com/spacesedan/sentiscope/internal/logging"
	"github.com/spacesedan/sentiscope/internal/personality"
)

const defaultModelDir = "./data/models"

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	store := db.NewProfileStore()

	var cache analysis.ProfileCache
	if os.Getenv("VALKEY_INIT_ADDRESS") != "" {
		cache = clients.InitValkey()
		defer clients.CloseValkey()
	} else {
		slog.Info("[Main] VALKEY_INIT_ADDRESS not set, profile caching disabled")
	}

	clf, closeClassifier := buildClassifier()
	if closeClassifier != nil {
		defer closeClassifier()
	}

	publisher, err := events.NewPublisherFromEnv()
	if err != nil {
		slog.Error("[Main] Failed to initialize event publisher",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer publisher.Close()

	source, profiles := buildPostSource()

	svc := analysis.NewService(analysis.Options{
		Source:      source,
		Profiles:    profiles,
		Classifier:  clf,
		Fallback:    classifier.NewVADERClassifier(),
		Store:       store,
		Cache:       cache,
		Personality: personality.NewAnalyzer(),
		Publisher:   publisher,
	})

	frontendDir := os.Getenv("FRONTEND_DIR")
	if frontendDir == "" {
		frontendDir = "./frontend"
	}
	if _, err := os.Stat(frontendDir); err != nil {
		slog.Warn("[Main] Frontend directory not found, serving API only",
			slog.String("dir", frontendDir))
		frontendDir = ""
	}

	router := api.NewRouter(api.NewHandler(svc), frontendDir)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("[Main] Starting server", slog.String("port", port))
	if err := router.Run(":" + port); err != nil {
		slog.Error("[Main] Server exited",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildClassifier picks the classification backend. The local hugot pipeline
// is the default; a hosted endpoint or plain VADER can be selected instead,
// and a hugot failure degrades to VADER rather than refusing to start.
func buildClassifier() (classifier.Classifier, func()) {
	switch os.Getenv("CLASSIFIER") {
	case "remote":
		endpoint := os.Getenv("SENTIMENT_ENDPOINT")
		if endpoint == "" {
			slog.Error("[Main] CLASSIFIER=remote requires SENTIMENT_ENDPOINT")
			os.Exit(1)
		}
		return classifier.NewRemoteClassifier(endpoint, 0), nil
	case "vader":
		return classifier.NewVADERClassifier(), nil
	default:
		modelDir := os.Getenv("MODEL_DIR")
		if modelDir == "" {
			modelDir = defaultModelDir
		}
		h, err := classifier.NewHugotClassifier(os.Getenv("MODEL_NAME"), modelDir)
		if err != nil {
			slog.Warn("[Main] Hugot pipeline unavailable, falling back to VADER",
				slog.String("error", err.Error()))
			return classifier.NewVADERClassifier(), nil
		}
		return h, h.Close
	}
}

func buildPostSource() (analysis.PostSource, analysis.ProfileSource) {
	if os.Getenv("POST_SOURCE") == "reddit" {
		slog.Info("[Main] Using Reddit post source")
		return clients.GetRedditClient(), nil
	}

	bc, err := clients.GetBlueskyClient()
	if err != nil {
		slog.Error("[Main] Failed to initialize Bluesky client",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	return bc, bc
}
