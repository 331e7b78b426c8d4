package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/domain"
)

type mockQuotaStore struct {
	mu     sync.Mutex
	values map[string]int64
	getErr error
}

func (m *mockQuotaStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]int64)
	}
	m.values[key] += val
	return nil
}

func (m *mockQuotaStore) Get(_ context.Context, key string) (int64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func TestQuota_RejectsOverLimit(t *testing.T) {
	det := &mockDetector{}
	q := NewQuotaDetector(det, 3, QuotaActionReject, zap.NewNop())

	if _, err := q.Scan(context.Background(), "t", docs(t, "a", "b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", q.Remaining())
	}

	_, err := q.Scan(context.Background(), "t", docs(t, "c", "d"))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if det.calls != 1 {
		t.Errorf("rejected call must not reach the detector, got %d calls", det.calls)
	}
}

func TestQuota_WarnLetsCallThrough(t *testing.T) {
	det := &mockDetector{}
	q := NewQuotaDetector(det, 1, QuotaActionWarn, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := q.Scan(context.Background(), "t", docs(t, "a")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if det.calls != 3 {
		t.Errorf("expected 3 calls, got %d", det.calls)
	}
	if q.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", q.Remaining())
	}
}

func TestQuota_Unlimited(t *testing.T) {
	q := NewQuotaDetector(&mockDetector{}, 0, "", zap.NewNop())
	if _, err := q.Scan(context.Background(), "t", docs(t, "a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Remaining() != -1 {
		t.Errorf("Remaining() = %d, want -1", q.Remaining())
	}
}

func TestQuota_FailedCallNotCounted(t *testing.T) {
	det := &mockDetector{errs: []error{domain.ErrDetectorTransport}}
	q := NewQuotaDetector(det, 5, QuotaActionReject, zap.NewNop())

	_, _ = q.Scan(context.Background(), "t", docs(t, "a"))
	if q.Remaining() != 5 {
		t.Errorf("Remaining() = %d, want 5", q.Remaining())
	}
}

func TestQuota_PersistsAndLoads(t *testing.T) {
	store := &mockQuotaStore{}
	q := NewQuotaDetector(&mockDetector{}, 10, QuotaActionReject, zap.NewNop()).
		WithStore(context.Background(), store)

	if _, err := q.Scan(context.Background(), "t", docs(t, "a", "b", "c")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var key string
	for k, v := range store.values {
		key = k
		if v != 3 {
			t.Errorf("stored %d, want 3", v)
		}
	}
	if !strings.HasPrefix(key, "scanguard:quota:documents:daily:") {
		t.Errorf("unexpected key %q", key)
	}

	reloaded := NewQuotaDetector(&mockDetector{}, 10, QuotaActionReject, zap.NewNop()).
		WithStore(context.Background(), store)
	if reloaded.Remaining() != 7 {
		t.Errorf("Remaining() after reload = %d, want 7", reloaded.Remaining())
	}
}

func TestQuota_ResetsAtDayBoundary(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	q := NewQuotaDetector(&mockDetector{}, 2, QuotaActionReject, zap.NewNop())
	q.nowFn = func() time.Time { return now }
	q.day = truncateToDay(now)

	if _, err := q.Scan(context.Background(), "t", docs(t, "a", "b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := q.Scan(context.Background(), "t", docs(t, "c")); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := q.Scan(context.Background(), "t", docs(t, "c")); err != nil {
		t.Fatalf("expected quota reset after midnight, got %v", err)
	}
}
