// Package scancache caches per-document detector results in a key-value store.
package scancache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/db"
	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

var cacheKeyPrefix = domain.KeyPrefix + "scan_cache:"

// store is the consumer interface for the scan cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedDetector answers documents it has already seen from the store and
// sends only the rest to the inner detector, in one call.
// Entries are keyed by the SHA-256 of the detector token, document name and body, and hold
// offsets only. A token the detector never accepted therefore never reads an entry.
type CachedDetector struct {
	inner      domscan.Detector
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domscan.Detector,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedDetector {
	return &CachedDetector{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Scan returns one result per document, in order.
func (c *CachedDetector) Scan(
	ctx context.Context, token string, docs []domdoc.Document,
) ([]domscan.Result, error) {
	results := make([]domscan.Result, len(docs))
	keys := make([]string, len(docs))

	var (
		missDocs []domdoc.Document
		missIdx  []int
	)
	for i, d := range docs {
		keys[i] = cacheKey(token, d.Name(), d.Body())
		if r, ok := c.getFromCache(ctx, keys[i]); ok {
			c.incCache("hit")
			results[i] = r
			continue
		}
		c.incCache("miss")
		missDocs = append(missDocs, d)
		missIdx = append(missIdx, i)
	}

	if hits := len(docs) - len(missDocs); hits > 0 {
		domain.UsageFromContext(ctx).AddCached(hits)
	}
	if len(missDocs) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Scan(ctx, token, missDocs)
	if err != nil {
		return nil, fmt.Errorf("scan uncached documents: %w", err)
	}
	if len(fresh) != len(missDocs) {
		return nil, fmt.Errorf("detector returned %d results for %d documents: %w",
			len(fresh), len(missDocs), domain.ErrDetectorUnavailable)
	}

	for j, r := range fresh {
		i := missIdx[j]
		results[i] = r
		c.putToCache(ctx, keys[i], r)
	}
	return results, nil
}

func (c *CachedDetector) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey length-prefixes every part so distinct (name, body) pairs never collide.
// Filename policies make the name part of the answer.
func cacheKey(token, name, body string) string {
	h := sha256.New()
	var size [8]byte
	for _, part := range []string{token, name, body} {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedDetector) getFromCache(ctx context.Context, key string) (domscan.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached scan result", zap.String("key", key), zap.Error(err))
		}
		return domscan.Result{}, false
	}
	if len(data) == 0 {
		return domscan.Result{}, false
	}

	var breaks []cachedBreak
	if err := json.Unmarshal(data, &breaks); err != nil {
		c.logger.Warn("Failed to parse cached scan result", zap.String("key", key), zap.Error(err))
		return domscan.Result{}, false
	}
	return fromCached(breaks), true
}

func (c *CachedDetector) putToCache(ctx context.Context, key string, r domscan.Result) {
	data, err := json.Marshal(toCached(r))
	if err != nil {
		c.logger.Warn("Failed to encode scan result", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache scan result", zap.String("key", key), zap.Error(err))
	}
}
