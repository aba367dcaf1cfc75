package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spacesedan/sentiscope/internal/sentiment"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

type ValkeyClient struct {
	Client valkey.Client
	mu     sync.Mutex
}

const (
	VALKEY_PROFILE_KEY_PREFIX  = "sentiscope:profile:"
	VALKEY_INFLIGHT_KEY_PREFIX = "sentiscope:inflight:"

	profileCacheTTLSeconds = 3600
	inflightLockTTLSeconds = 120
)

func InitValkey() *ValkeyClient {
	valkeyOnce.Do(func() {
		client, err := newValkeyClient()
		if err != nil {
			panic(fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err))
		}

		slog.Info("[ValkeyClient] Successfully connected to valkey")
		valkeyInstance = &ValkeyClient{Client: client}
	})
	return valkeyInstance
}

func newValkeyClient() (valkey.Client, error) {
	valkeyAddr := os.Getenv("VALKEY_INIT_ADDRESS")
	valkeyPassword := os.Getenv("VALKEY_PASSWORD")
	useTLS := os.Getenv("VALKEY_TLS") == "true"

	opts := valkey.ClientOption{
		InitAddress:      []string{valkeyAddr},
		Password:         valkeyPassword,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if c := client.Do(ctx, client.B().Ping().Build()); c.Error() != nil {
		return nil, fmt.Errorf("ping failed: %w", c.Error())
	}

	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ValkeyClient] Recreate failed and was recovered from panic",
				slog.Any("panic", r))
		}
	}()

	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	vc.Client.Close()

	client, err := newValkeyClient()
	if err != nil {
		panic(fmt.Errorf("[ValkeyClient] failed to recreate Valkey: %w", err))
	}

	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
	vc.Client = client
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Client.Close()
	}
}

func GetValkeyClient() *ValkeyClient {
	if valkeyInstance == nil {
		panic("[ValkeyClient] Error: Valkey client is not initialized")
	}
	return valkeyInstance
}

// CacheProfile stores the assembled profile under its handle with a TTL so a
// repeat analysis within the window is served from cache.
func (vc *ValkeyClient) CacheProfile(ctx context.Context, profile sentiment.SentimentProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("[ValkeyClient] failed to marshal profile: %w", err)
	}

	key := VALKEY_PROFILE_KEY_PREFIX + profile.Handle
	res := vc.DoWithRetry(ctx,
		vc.Client.B().Set().Key(key).Value(string(data)).ExSeconds(profileCacheTTLSeconds).Build(), 3)
	if err := res.Error(); err != nil {
		return err
	}

	slog.Info("[ValkeyClient] Profile cached",
		slog.String("handle", profile.Handle))
	return nil
}

// GetCachedProfile returns the cached profile for handle, or nil on a miss.
func (vc *ValkeyClient) GetCachedProfile(ctx context.Context, handle string) (*sentiment.SentimentProfile, error) {
	key := VALKEY_PROFILE_KEY_PREFIX + handle
	res := vc.DoWithRetry(ctx, vc.Client.B().Get().Key(key).Build(), 3)

	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return nil, err
	}

	data, err := res.AsBytes()
	if err != nil {
		return nil, err
	}

	var profile sentiment.SentimentProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to unmarshal cached profile: %w", err)
	}
	return &profile, nil
}

// InvalidateProfile drops the cached copy, used after a background update
// patches the stored profile.
func (vc *ValkeyClient) InvalidateProfile(ctx context.Context, handle string) {
	key := VALKEY_PROFILE_KEY_PREFIX + handle
	if res := vc.DoWithRetry(ctx, vc.Client.B().Del().Key(key).Build(), 3); res.Error() != nil {
		slog.Warn("[ValkeyClient] Failed to invalidate cached profile",
			slog.String("handle", handle),
			slog.String("error", res.Error().Error()))
	}
}

// TryAcquireAnalysis marks handle as being analyzed. Returns false when
// another request already holds the slot, so concurrent analyses for the
// same handle coalesce onto one run.
func (vc *ValkeyClient) TryAcquireAnalysis(ctx context.Context, handle string) bool {
	key := VALKEY_INFLIGHT_KEY_PREFIX + handle
	res := vc.DoWithRetry(ctx,
		vc.Client.B().Set().Key(key).Value("1").Nx().ExSeconds(inflightLockTTLSeconds).Build(), 3)

	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return false
		}
		if isConnectionError(err) {
			vc.recreateClient()
		}
		// If valkey is down the analysis still has to run.
		return true
	}
	return true
}

func (vc *ValkeyClient) ReleaseAnalysis(ctx context.Context, handle string) {
	key := VALKEY_INFLIGHT_KEY_PREFIX + handle
	if res := vc.DoWithRetry(ctx, vc.Client.B().Del().Key(key).Build(), 3); res.Error() != nil {
		slog.Warn("[ValkeyClient] Failed to release analysis slot",
			slog.String("handle", handle),
			slog.String("error", res.Error().Error()))
	}
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
