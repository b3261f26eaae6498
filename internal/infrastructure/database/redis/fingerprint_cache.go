package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// DefaultKeyPrefix namespaces fingerprint keys.
const DefaultKeyPrefix = "ddichecker:fp:"

// FingerprintCache stores Morgan fingerprints as JSON values.  It satisfies
// molecule.FingerprintRepository.
type FingerprintCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

var _ molecule.FingerprintRepository = (*FingerprintCache)(nil)

type CacheOption func(*FingerprintCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *FingerprintCache) { c.prefix = prefix }
}

// WithTTL sets the expiry of written entries.  Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *FingerprintCache) { c.ttl = ttl }
}

func NewFingerprintCache(client *Client, log logging.Logger, opts ...CacheOption) *FingerprintCache {
	c := &FingerprintCache{
		client: client,
		logger: logging.OrNop(log),
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FingerprintCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expiries by +/- 10% so a warmed reference set does not
// expire in one burst.
func (c *FingerprintCache) jitterTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}

// Get returns errors.CodeNotFound on a miss.
func (c *FingerprintCache) Get(ctx context.Context, key string) (*molecule.Fingerprint, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFound("fingerprint not cached").WithDetail(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get fingerprint from cache")
	}
	return decode(key, data)
}

func (c *FingerprintCache) Put(ctx context.Context, key string, fp *molecule.Fingerprint) error {
	if fp == nil {
		return errors.InvalidParam("nil fingerprint")
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode fingerprint")
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.jitterTTL()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to put fingerprint into cache")
	}
	return nil
}

// Purge deletes every entry under the cache prefix and returns the count.
func (c *FingerprintCache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache entries")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("fingerprint cache purged", logging.Int64("deleted", deleted))
	return deleted, nil
}

func decode(key string, data []byte) (*molecule.Fingerprint, error) {
	fp := &molecule.Fingerprint{}
	if err := json.Unmarshal(data, fp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached fingerprint").WithDetail(key)
	}
	return fp, nil
}

//Personal.AI order the ending
