package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

const cacheTTL = time.Hour

// CachedClassifier memoizes classification results in Redis, keyed by the
// normalized ticket text. Cache failures are logged and ignored; the cache
// never makes classification less available than the wrapped classifier.
type CachedClassifier struct {
	inner  Classifier
	client *redis.Client
	logger *zap.Logger
}

// NewCachedClassifier wraps a classifier with a Redis cache. A nil client
// returns the inner classifier unchanged.
func NewCachedClassifier(inner Classifier, client *redis.Client, logger *zap.Logger) Classifier {
	if client == nil {
		return inner
	}
	return &CachedClassifier{inner: inner, client: client, logger: logger}
}

func (c *CachedClassifier) Classify(ctx context.Context, title, description string) (domain.ClassificationResult, error) {
	key := cacheKey(title, description)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var result domain.ClassificationResult
		if json.Unmarshal(cached, &result) == nil {
			return result, nil
		}
	} else if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
		c.logger.Debug("classification cache read failed", zap.Error(err))
	}

	result, err := c.inner.Classify(ctx, title, description)
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	if encoded, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, encoded, cacheTTL).Err(); err != nil {
			c.logger.Debug("classification cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

func cacheKey(title, description string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(title) + "\n" + strings.ToLower(description)))
	return "triage:classification:" + hex.EncodeToString(sum[:])
}
