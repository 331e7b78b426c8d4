package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

// QuotaAction defines behavior when the daily document quota is spent.
type QuotaAction string

const (
	// QuotaActionWarn logs a warning but lets the call through.
	QuotaActionWarn QuotaAction = "warn"
	// QuotaActionReject fails the call with domain.ErrQuotaExceeded.
	QuotaActionReject QuotaAction = "reject"
)

// QuotaStore is the persistence interface for quota counters.
type QuotaStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// QuotaDetector enforces a daily limit on documents sent to the detector.
// The check is in-memory; usage is written behind to the store so restarts
// and other replicas see it on load.
type QuotaDetector struct {
	inner  domscan.Detector
	limit  int64
	action QuotaAction
	logger *zap.Logger

	mu       sync.Mutex
	used     int64
	day      time.Time
	store    QuotaStore
	nowFn    func() time.Time
	keyScope string
}

// NewQuotaDetector wraps a detector with a daily document limit. limit <= 0 disables enforcement.
func NewQuotaDetector(inner domscan.Detector, limit int64, action QuotaAction, logger *zap.Logger) *QuotaDetector {
	if action == "" {
		action = QuotaActionReject
	}
	q := &QuotaDetector{
		inner:    inner,
		limit:    limit,
		action:   action,
		logger:   logger,
		nowFn:    time.Now,
		keyScope: "documents",
	}
	q.day = truncateToDay(q.nowFn().UTC())
	return q
}

// WithStore attaches a persistence store and loads today's counter.
func (q *QuotaDetector) WithStore(ctx context.Context, store QuotaStore) *QuotaDetector {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.store = store
	used, err := store.Get(ctx, q.key(q.day))
	if err != nil {
		q.logger.Warn("Failed to load detector quota from store", zap.Error(err))
		return q
	}
	q.used = used
	q.logger.Info("Detector quota loaded from store", zap.Int64("daily_used", used), zap.Int64("daily_limit", q.limit))
	return q
}

// Scan checks the quota, delegates, and records the documents sent.
func (q *QuotaDetector) Scan(
	ctx context.Context, token string, docs []domdoc.Document,
) ([]domscan.Result, error) {
	if err := q.check(len(docs)); err != nil {
		return nil, err
	}

	results, err := q.inner.Scan(ctx, token, docs)
	if err != nil {
		return nil, err //nolint:wrapcheck // decorator keeps the inner error chain intact
	}

	q.record(int64(len(docs)))
	return results, nil
}

// Remaining returns documents left today (-1 if unlimited).
func (q *QuotaDetector) Remaining() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfNeeded()
	if q.limit <= 0 {
		return -1
	}
	return max(q.limit-q.used, 0)
}

func (q *QuotaDetector) check(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfNeeded()
	if q.limit <= 0 || q.used+int64(n) <= q.limit {
		return nil
	}

	if q.action == QuotaActionReject {
		return fmt.Errorf("%d of %d documents used today: %w", q.used, q.limit, domain.ErrQuotaExceeded)
	}
	q.logger.Warn("Detector quota exceeded",
		zap.Int64("daily_used", q.used),
		zap.Int64("daily_limit", q.limit),
		zap.Int("documents", n),
	)
	return nil
}

func (q *QuotaDetector) record(n int64) {
	q.mu.Lock()
	q.resetIfNeeded()
	q.used += n
	store := q.store
	key := q.key(q.day)
	q.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind with its own deadline so a slow store never holds up the scan.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.IncrBy(ctx, key, n); err != nil {
		q.logger.Warn("Failed to persist detector quota", zap.String("key", key), zap.Error(err))
	}
}

func (q *QuotaDetector) key(day time.Time) string {
	return fmt.Sprintf("%squota:%s:daily:%s", domain.KeyPrefix, q.keyScope, day.Format("2006-01-02"))
}

// resetIfNeeded zeroes the counter when the day rolls over. Caller holds mu.
func (q *QuotaDetector) resetIfNeeded() {
	today := truncateToDay(q.nowFn().UTC())
	if today.After(q.day) {
		q.used = 0
		q.day = today
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
