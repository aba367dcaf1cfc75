package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const (
	BLUESKY_API_URL     = "https://bsky.social/xrpc"
	BLUESKY_SESSION_TTL = 90 * time.Minute
)

var (
	blueskyInstance *BlueskyClient
	blueskyOnce     sync.Once
)

// BlueskyClient talks to the AT Protocol XRPC endpoints. It logs in with an
// app password and refreshes the session token when it ages out.
type BlueskyClient struct {
	Client *http.Client

	handle   string
	password string

	mu        sync.Mutex
	accessJwt string
	sessionAt time.Time
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

type blueskyProfile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type blueskyFeedResponse struct {
	Feed []struct {
		Post struct {
			URI    string `json:"uri"`
			Author struct {
				Handle      string `json:"handle"`
				DisplayName string `json:"displayName"`
			} `json:"author"`
			Record struct {
				Text      string    `json:"text"`
				CreatedAt time.Time `json:"createdAt"`
			} `json:"record"`
			LikeCount   int `json:"likeCount"`
			RepostCount int `json:"repostCount"`
			ReplyCount  int `json:"replyCount"`
		} `json:"post"`
		Reason json.RawMessage `json:"reason,omitempty"`
	} `json:"feed"`
}

// GetBlueskyClient builds the singleton client. Returns an error instead of
// panicking so a server without Bluesky credentials can disable the routes.
func GetBlueskyClient() (*BlueskyClient, error) {
	var initErr error
	blueskyOnce.Do(func() {
		handle := os.Getenv("BLUESKY_HANDLE")
		password := os.Getenv("BLUESKY_PASSWORD")
		if handle == "" || password == "" {
			initErr = fmt.Errorf("[BlueskyClient] BLUESKY_HANDLE and BLUESKY_PASSWORD must be set")
			return
		}

		blueskyInstance = &BlueskyClient{
			Client:   &http.Client{Timeout: 30 * time.Second},
			handle:   handle,
			password: password,
		}
		slog.Info("[BlueskyClient] Client initialized",
			slog.String("login_handle", handle))
	})
	if blueskyInstance == nil {
		if initErr == nil {
			initErr = fmt.Errorf("[BlueskyClient] client is not initialized")
		}
		return nil, initErr
	}
	return blueskyInstance, nil
}

// session returns a valid access token, logging in again when the cached one
// is stale.
func (bc *BlueskyClient) session(ctx context.Context) (string, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.accessJwt != "" && time.Since(bc.sessionAt) < BLUESKY_SESSION_TTL {
		return bc.accessJwt, nil
	}

	body, err := json.Marshal(map[string]string{
		"identifier": bc.handle,
		"password":   bc.password,
	})
	if err != nil {
		return "", fmt.Errorf("[BlueskyClient] failed to marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		BLUESKY_API_URL+"/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("[BlueskyClient] failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	var session blueskySession
	if err := bc.do(req, &session); err != nil {
		return "", fmt.Errorf("[BlueskyClient] login failed: %w", err)
	}

	slog.Info("[BlueskyClient] Session created",
		slog.String("did", session.Did))
	bc.accessJwt = session.AccessJwt
	bc.sessionAt = time.Now()
	return bc.accessJwt, nil
}

// GetProfile fetches display metadata for actor.
func (bc *BlueskyClient) GetProfile(ctx context.Context, actor string) (sentiment.DisplayMeta, error) {
	token, err := bc.session(ctx)
	if err != nil {
		return sentiment.DisplayMeta{}, err
	}

	endpoint := fmt.Sprintf("%s/app.bsky.actor.getProfile?actor=%s",
		BLUESKY_API_URL, url.QueryEscape(actor))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sentiment.DisplayMeta{}, fmt.Errorf("[BlueskyClient] failed to build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", USER_AGENT)

	var profile blueskyProfile
	if err := bc.do(req, &profile); err != nil {
		return sentiment.DisplayMeta{}, fmt.Errorf("[BlueskyClient] profile fetch failed: %w", err)
	}

	name := profile.DisplayName
	if name == "" {
		name = profile.Handle
	}
	return sentiment.DisplayMeta{UserName: name, AvatarURL: profile.Avatar}, nil
}

// FetchUserPosts returns up to limit original posts from actor's feed,
// newest first. Reposts are skipped, matching what the analysis cares about.
func (bc *BlueskyClient) FetchUserPosts(ctx context.Context, actor string, limit int) ([]sentiment.Post, error) {
	token, err := bc.session(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/app.bsky.feed.getAuthorFeed?actor=%s&limit=%d",
		BLUESKY_API_URL, url.QueryEscape(actor), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("[BlueskyClient] failed to build feed request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", USER_AGENT)

	var feed blueskyFeedResponse
	if err := bc.do(req, &feed); err != nil {
		return nil, fmt.Errorf("[BlueskyClient] feed fetch failed: %w", err)
	}

	posts := make([]sentiment.Post, 0, len(feed.Feed))
	for _, item := range feed.Feed {
		if len(item.Reason) > 0 {
			// Reposts carry a reason; only original posts count.
			continue
		}
		post := item.Post
		id := post.URI
		if idx := strings.LastIndex(post.URI, "/"); idx >= 0 {
			id = post.URI[idx+1:]
		}
		posts = append(posts, sentiment.Post{
			ID:        id,
			Text:      post.Record.Text,
			Author:    post.Author.Handle,
			CreatedAt: post.Record.CreatedAt,
			URL:       fmt.Sprintf("https://bsky.app/profile/%s/post/%s", post.Author.Handle, id),
			Likes:     post.LikeCount,
			Reposts:   post.RepostCount,
			Replies:   post.ReplyCount,
		})
		if len(posts) == limit {
			break
		}
	}

	slog.Info("[BlueskyClient] Collected posts",
		slog.String("actor", actor),
		slog.Int("count", len(posts)))
	return posts, nil
}

func (bc *BlueskyClient) do(req *http.Request, output any) error {
	var resp *http.Response
	var err error
	backoff := INITIAL_BACKOFF

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return err
			}
		}
		resp, err = bc.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}

		slog.Warn("[BlueskyClient] Request failed, will retry",
			slog.Int("attempt", attempt+1))

		select {
		case <-req.Context().Done():
			return req.Context().Err()
		case <-time.After(backoff):
		}
		if backoff < MAX_BACKOFF {
			backoff *= 2
		}
	}
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("no response after retries")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, previewBody(body))
	}
	if err := json.Unmarshal(body, output); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func previewBody(body []byte) string {
	raw := string(body)
	if len(raw) > 120 {
		raw = raw[:120]
	}
	return raw
}
