package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentiscope/internal/analysis"
	"github.com/spacesedan/sentiscope/internal/db"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

// AnalysisService is the part of the analysis pipeline the handlers need.
type AnalysisService interface {
	Analyze(ctx context.Context, handle string, limit int) (sentiment.SentimentProfile, error)
	FetchPosts(ctx context.Context, handle string, limit int) ([]sentiment.Post, error)
	RecentProfiles(ctx context.Context) ([]sentiment.SentimentProfile, error)
	Personality(ctx context.Context, handle string) (string, error)
}

type Handler struct {
	service AnalysisService
}

func NewHandler(service AnalysisService) *Handler {
	return &Handler{service: service}
}

// AnalyzeUser scrapes a user's posts, runs the sentiment pipeline and
// returns the assembled profile.
func (h *Handler) AnalyzeUser(c *gin.Context) {
	handle := c.Param("handle")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	slog.Info("[API] Analyze request",
		slog.String("handle", handle),
		slog.Int("limit", limit))

	profile, err := h.service.Analyze(c.Request.Context(), handle, limit)
	if err != nil {
		switch {
		case errors.Is(err, sentiment.ErrInvalidHandle):
			c.JSON(http.StatusBadRequest, gin.H{"error": "handle must not be empty"})
		case errors.Is(err, analysis.ErrNoPosts):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found or has no public posts"})
		default:
			slog.Error("[API] Analysis failed",
				slog.String("handle", handle),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetUserPosts returns the raw bounded post sequence without analysis.
func (h *Handler) GetUserPosts(c *gin.Context) {
	handle := c.Param("handle")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	posts, err := h.service.FetchPosts(c.Request.Context(), handle, limit)
	if err != nil {
		if errors.Is(err, sentiment.ErrInvalidHandle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "handle must not be empty"})
			return
		}
		slog.Error("[API] Post fetch failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch posts"})
		return
	}
	if len(posts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found or has no public posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

// GetRecentUsers lists the latest stored analyses.
func (h *Handler) GetRecentUsers(c *gin.Context) {
	profiles, err := h.service.RecentProfiles(c.Request.Context())
	if err != nil {
		slog.Error("[API] Recent profiles lookup failed",
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list recent analyses"})
		return
	}
	if profiles == nil {
		profiles = []sentiment.SentimentProfile{}
	}

	c.JSON(http.StatusOK, profiles)
}

// GetPersonality returns the background personality analysis when it exists.
func (h *Handler) GetPersonality(c *gin.Context) {
	handle := c.Param("handle")

	personality, err := h.service.Personality(c.Request.Context(), handle)
	if err != nil {
		if errors.Is(err, db.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analysis found for handle"})
			return
		}
		slog.Error("[API] Personality lookup failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch personality analysis"})
		return
	}

	response := gin.H{
		"handle":       handle,
		"is_available": personality != "",
	}
	if personality != "" {
		response["personality_analysis"] = personality
	} else {
		response["personality_analysis"] = nil
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseLimit reads the limit query parameter, rejecting garbage and clamping
// the value into the allowed window.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", strconv.Itoa(analysis.DefaultPostLimit))
	limit, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return 0, false
	}
	if limit < 1 {
		limit = 1
	}
	if limit > analysis.MaxPostLimit {
		limit = analysis.MaxPostLimit
	}
	return limit, true
}
