package services

import (
	"context"
	"crypto/md5" //nolint:gosec // cache keys only, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// md5Hex returns the lower-case hex md5 of s.
func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// cacheGet decodes a cached JSON value into v. Misses, decode errors and a nil
// cache all report false; backend errors are logged and treated as misses.
func cacheGet(ctx context.Context, c driven.Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	data, err := c.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Warn("cache get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Debug("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// cacheSet stores v as JSON. Failures are logged and ignored.
func cacheSet(ctx context.Context, c driven.Cache, key string, v any, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Debug("cache encode %s: %v", key, err)
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache set %s: %v", key, err)
	}
}
