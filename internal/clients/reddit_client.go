package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
)

var (
	redditClientInstance *RedditClient
	redditClientOnce     sync.Once
)

// RedditClient fetches a redditor's submitted posts using app-only OAuth2
// credentials.
type RedditClient struct {
	Config *clientcredentials.Config
	Client *http.Client
	mu     sync.Mutex
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Permalink   string  `json:"permalink"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func GetRedditClient() *RedditClient {
	redditClientOnce.Do(func() {
		oauthConf := &clientcredentials.Config{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		redditClientInstance = &RedditClient{
			Config: oauthConf,
			Client: oauthConf.Client(context.Background()),
		}
	})

	return redditClientInstance
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

// FetchUserPosts returns up to limit of the user's submitted posts, newest
// first. Title and selftext are joined since either may carry the sentiment.
func (rc *RedditClient) FetchUserPosts(ctx context.Context, username string, limit int) ([]sentiment.Post, error) {
	endpoint := fmt.Sprintf("%s/user/%s/submitted?sort=new&limit=%d",
		REDDIT_API_URL, url.PathEscape(username), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	var resp *http.Response
	backoff := INITIAL_BACKOFF
	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		resp, err = rc.Client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized {
				rc.RefreshClient()
			}
			resp.Body.Close()
			resp = nil
		}

		slog.Warn("[RedditClient] Request failed, will retry",
			slog.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < MAX_BACKOFF {
			backoff *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] request failed after retries: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("[RedditClient] no successful response after retries")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to read response: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to unmarshal listing: %w", err)
	}

	posts := make([]sentiment.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		data := child.Data
		text := data.Title
		if data.SelfText != "" {
			text = text + "\n\n" + data.SelfText
		}
		posts = append(posts, sentiment.Post{
			ID:        data.ID,
			Text:      text,
			Author:    data.Author,
			CreatedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
			URL:       "https://www.reddit.com" + data.Permalink,
			Likes:     data.Score,
			Replies:   data.NumComments,
		})
		if len(posts) == limit {
			break
		}
	}

	slog.Info("[RedditClient] Collected posts",
		slog.String("username", username),
		slog.Int("count", len(posts)))
	return posts, nil
}
