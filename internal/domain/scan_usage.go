package domain

import (
	"context"
	"sync"
)

type scanUsageKey struct{}

// ScanUsage collects detector usage for a single HTTP request.
// The handler puts a pointer into the context before calling the pipeline;
// the scan service records every detector call; the handler reads it for response headers.
// Messages of one request are scanned concurrently, so updates are locked.
type ScanUsage struct {
	mu        sync.Mutex
	documents int
	calls     int
	cached    int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ScanUsage) {
	u := &ScanUsage{}
	return context.WithValue(ctx, scanUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ScanUsage {
	u, _ := ctx.Value(scanUsageKey{}).(*ScanUsage)
	return u
}

// AddCall records one detector call carrying n documents.
func (u *ScanUsage) AddCall(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.documents += n
	u.mu.Unlock()
}

// AddCached records n documents answered from the scan cache.
func (u *ScanUsage) AddCached(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.cached += n
	u.mu.Unlock()
}

// Snapshot returns detector calls, documents sent and cached documents.
func (u *ScanUsage) Snapshot() (calls, documents, cached int) {
	if u == nil {
		return 0, 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls, u.documents, u.cached
}
