package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// Client wraps Redis operations shared between service instances.
type Client struct {
	rdb          *redis.Client
	inflationTTL time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL          string        `yaml:"url"`
	Password     string        `yaml:"password"`
	InflationTTL time.Duration `yaml:"inflation_ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.InflationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{rdb: rdb, inflationTTL: ttl}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func lockKey(leagueID domain.LeagueID) string {
	return fmt.Sprintf("draftsync:sync_lock:%s", leagueID)
}

func inflationKey(leagueID domain.LeagueID) string {
	return fmt.Sprintf("draftsync:inflation:%s", leagueID)
}

func eventChannel(leagueID domain.LeagueID) string {
	return fmt.Sprintf("draftsync:events:%s", leagueID)
}

// releaseScript deletes the lock only while it still carries the caller's token,
// so an instance whose lock expired cannot drop a lock another instance now holds.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireSyncLock attempts to take the league's sync lock. The returned token
// identifies this holder and must be passed to ReleaseSyncLock.
func (c *Client) AcquireSyncLock(ctx context.Context, leagueID domain.LeagueID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, lockKey(leagueID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseSyncLock releases the league's sync lock if token still owns it.
func (c *Client) ReleaseSyncLock(ctx context.Context, leagueID domain.LeagueID, token string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{lockKey(leagueID)}, token).Err(); err != nil {
		return fmt.Errorf("release lock failed: %w", err)
	}
	return nil
}

// PutInflation caches the latest inflation state for readers on other instances.
func (c *Client) PutInflation(ctx context.Context, state *domain.InflationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal inflation state: %w", err)
	}
	if err := c.rdb.Set(ctx, inflationKey(state.LeagueID), data, c.inflationTTL).Err(); err != nil {
		return fmt.Errorf("failed to set inflation state: %w", err)
	}
	return nil
}

// GetInflation returns the cached state, or nil when nothing is cached.
func (c *Client) GetInflation(ctx context.Context, leagueID domain.LeagueID) (*domain.InflationState, error) {
	data, err := c.rdb.Get(ctx, inflationKey(leagueID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	var state domain.InflationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inflation state: %w", err)
	}
	return &state, nil
}
