package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/sentiscope/internal/classifier"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const (
	// DefaultPostLimit matches the public API default.
	DefaultPostLimit = 25
	// MaxPostLimit bounds a single analysis request.
	MaxPostLimit = 100

	classifyBatchSize = 32
	recentUsersLimit  = 10
)

// ErrNoPosts is returned when the source has no posts for the handle.
var ErrNoPosts = errors.New("no posts found for handle")

// PostSource produces the bounded ordered post sequence for a handle.
// Pagination, rate limiting and retries live behind this interface.
type PostSource interface {
	FetchUserPosts(ctx context.Context, handle string, limit int) ([]sentiment.Post, error)
}

// ProfileSource optionally resolves display metadata for a handle.
type ProfileSource interface {
	GetProfile(ctx context.Context, handle string) (sentiment.DisplayMeta, error)
}

// ProfileStore persists assembled profiles.
type ProfileStore interface {
	Save(ctx context.Context, profile sentiment.SentimentProfile) error
	Get(ctx context.Context, handle string) (sentiment.SentimentProfile, error)
	ListRecent(ctx context.Context, n int) ([]sentiment.SentimentProfile, error)
	UpdatePersonality(ctx context.Context, handle, analysis string) error
}

// ProfileCache fronts the store and coalesces concurrent analyses for the
// same handle.
type ProfileCache interface {
	CacheProfile(ctx context.Context, profile sentiment.SentimentProfile) error
	GetCachedProfile(ctx context.Context, handle string) (*sentiment.SentimentProfile, error)
	InvalidateProfile(ctx context.Context, handle string)
	TryAcquireAnalysis(ctx context.Context, handle string) bool
	ReleaseAnalysis(ctx context.Context, handle string)
}

// PersonalityAnalyzer generates the background personality profile.
type PersonalityAnalyzer interface {
	Available() bool
	AnalyzePersonality(ctx context.Context, posts []sentiment.LabeledPost, userName string) (string, error)
}

// EventPublisher emits completed profiles to downstream consumers.
type EventPublisher interface {
	PublishProfile(profile sentiment.SentimentProfile)
}

// Service runs the scrape, classify, aggregate, assemble, persist pipeline
// for one handle per call. Everything after the classifier is a pure
// single-pass transform; the service owns the fallback policy when a
// classification batch fails.
type Service struct {
	source      PostSource
	profiles    ProfileSource
	classifier  classifier.Classifier
	fallback    classifier.Classifier
	store       ProfileStore
	cache       ProfileCache
	personality PersonalityAnalyzer
	publisher   EventPublisher
	table       sentiment.OrdinalTable
}

type Options struct {
	Source      PostSource
	Profiles    ProfileSource
	Classifier  classifier.Classifier
	Fallback    classifier.Classifier
	Store       ProfileStore
	Cache       ProfileCache
	Personality PersonalityAnalyzer
	Publisher   EventPublisher
	Table       sentiment.OrdinalTable
}

func NewService(opts Options) *Service {
	table := opts.Table
	if table.Ranks == nil {
		table = sentiment.DefaultOrdinalTable()
	}
	return &Service{
		source:      opts.Source,
		profiles:    opts.Profiles,
		classifier:  opts.Classifier,
		fallback:    opts.Fallback,
		store:       opts.Store,
		cache:       opts.Cache,
		personality: opts.Personality,
		publisher:   opts.Publisher,
		table:       table,
	}
}

// Analyze produces a fresh SentimentProfile for handle from up to limit
// posts. Concurrent requests for the same handle coalesce onto the cached
// result when one is available.
func (s *Service) Analyze(ctx context.Context, handle string, limit int) (sentiment.SentimentProfile, error) {
	if handle == "" {
		return sentiment.SentimentProfile{}, sentiment.ErrInvalidHandle
	}
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}

	if s.cache != nil {
		if !s.cache.TryAcquireAnalysis(ctx, handle) {
			if cached, err := s.cache.GetCachedProfile(ctx, handle); err == nil && cached != nil {
				slog.Info("[Analysis] Serving coalesced request from cache",
					slog.String("handle", handle))
				return *cached, nil
			}
		} else {
			defer s.cache.ReleaseAnalysis(ctx, handle)
		}
	}

	meta := s.displayMeta(ctx, handle)

	posts, err := s.source.FetchUserPosts(ctx, handle, limit)
	if err != nil {
		return sentiment.SentimentProfile{}, fmt.Errorf("[Analysis] failed to fetch posts for %q: %w", handle, err)
	}
	if len(posts) == 0 {
		return sentiment.SentimentProfile{}, ErrNoPosts
	}

	labeled := s.classifyPosts(ctx, posts)

	agg := sentiment.AggregatePosts(labeled, s.table)
	profile, err := sentiment.AssembleProfile(handle, meta, agg, s.table)
	if err != nil {
		return sentiment.SentimentProfile{}, err
	}
	profile.Posts = labeled
	profile.AnalyzedAt = time.Now().UTC()

	if err := s.store.Save(ctx, profile); err != nil {
		// The caller still gets the result; only persistence failed.
		slog.Error("[Analysis] Failed to persist profile",
			slog.String("handle", handle),
			slog.String("error", err.Error()))
	} else if s.cache != nil {
		if err := s.cache.CacheProfile(ctx, profile); err != nil {
			slog.Warn("[Analysis] Failed to cache profile",
				slog.String("handle", handle),
				slog.String("error", err.Error()))
		}
	}

	if s.publisher != nil {
		s.publisher.PublishProfile(profile)
	}

	s.launchPersonalityTask(profile)

	slog.Info("[Analysis] Analysis complete",
		slog.String("handle", handle),
		slog.Int("total_analyzed", profile.TotalAnalyzed))
	return profile, nil
}

// displayMeta resolves display name and avatar, falling back to the bare
// handle when the lookup fails.
func (s *Service) displayMeta(ctx context.Context, handle string) sentiment.DisplayMeta {
	if s.profiles == nil {
		return sentiment.DisplayMeta{UserName: handle}
	}
	meta, err := s.profiles.GetProfile(ctx, handle)
	if err != nil {
		slog.Warn("[Analysis] Could not fetch user profile, using handle",
			slog.String("handle", handle),
			slog.String("error", err.Error()))
		return sentiment.DisplayMeta{UserName: handle}
	}
	return meta
}

// classifyPosts labels the posts in batches. A failed batch is retried on
// the fallback classifier when one is configured, otherwise its posts are
// skipped; classification is never retried silently per post.
func (s *Service) classifyPosts(ctx context.Context, posts []sentiment.Post) []sentiment.LabeledPost {
	labeled := make([]sentiment.LabeledPost, 0, len(posts))

	for start := 0; start < len(posts); start += classifyBatchSize {
		end := start + classifyBatchSize
		if end > len(posts) {
			end = len(posts)
		}
		batch := posts[start:end]

		texts := make([]string, len(batch))
		for i, post := range batch {
			texts[i] = post.Text
		}

		predictions, err := s.classifier.Classify(ctx, texts)
		if err != nil {
			slog.Warn("[Analysis] Classification batch failed",
				slog.Int("batch_start", start),
				slog.String("error", err.Error()))

			if s.fallback == nil {
				continue
			}
			predictions, err = s.fallback.Classify(ctx, texts)
			if err != nil {
				slog.Error("[Analysis] Fallback classification failed, skipping batch",
					slog.Int("batch_start", start),
					slog.String("error", err.Error()))
				continue
			}
		}

		for i, prediction := range predictions {
			labeled = append(labeled, sentiment.LabeledPost{
				Post:       batch[i],
				Label:      prediction.Label,
				Confidence: prediction.Confidence,
			})
		}
	}

	return labeled
}

// launchPersonalityTask generates the personality analysis in the background
// and patches the stored profile, mirroring how a completed analysis response
// should never wait on the LLM.
func (s *Service) launchPersonalityTask(profile sentiment.SentimentProfile) {
	if s.personality == nil || !s.personality.Available() {
		return
	}

	go func() {
		ctx := context.Background()

		analysis, err := s.personality.AnalyzePersonality(ctx, profile.Posts, profile.UserName)
		if err != nil {
			slog.Error("[Analysis] Personality analysis failed",
				slog.String("handle", profile.Handle),
				slog.String("error", err.Error()))
			return
		}
		if analysis == "" {
			return
		}

		if err := s.store.UpdatePersonality(ctx, profile.Handle, analysis); err != nil {
			slog.Error("[Analysis] Failed to store personality analysis",
				slog.String("handle", profile.Handle),
				slog.String("error", err.Error()))
			return
		}
		if s.cache != nil {
			s.cache.InvalidateProfile(ctx, profile.Handle)
		}
	}()
}

// RecentProfiles lists the latest stored analyses for the dashboard.
func (s *Service) RecentProfiles(ctx context.Context) ([]sentiment.SentimentProfile, error) {
	return s.store.ListRecent(ctx, recentUsersLimit)
}

// Personality returns the stored personality analysis for handle. The empty
// string means the background task has not finished (or never ran).
func (s *Service) Personality(ctx context.Context, handle string) (string, error) {
	profile, err := s.store.Get(ctx, handle)
	if err != nil {
		return "", err
	}
	return profile.Personality, nil
}

// FetchPosts exposes the raw bounded post sequence for a handle.
func (s *Service) FetchPosts(ctx context.Context, handle string, limit int) ([]sentiment.Post, error) {
	if handle == "" {
		return nil, sentiment.ErrInvalidHandle
	}
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	if limit > MaxPostLimit {
		limit = MaxPostLimit
	}
	return s.source.FetchUserPosts(ctx, handle, limit)
}
