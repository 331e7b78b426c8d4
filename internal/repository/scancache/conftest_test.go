package scancache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scanguard/internal/db"
	domdoc "github.com/kailas-cloud/scanguard/internal/domain/document"
	domscan "github.com/kailas-cloud/scanguard/internal/domain/scan"
)

type mockDetector struct {
	resultFn func(doc domdoc.Document) domscan.Result
	err      error
	calls    int
	lastDocs []domdoc.Document
}

func (m *mockDetector) Scan(_ context.Context, _ string, docs []domdoc.Document) ([]domscan.Result, error) {
	m.calls++
	m.lastDocs = docs
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domscan.Result, len(docs))
	for i, d := range docs {
		if m.resultFn != nil {
			out[i] = m.resultFn(d)
		}
	}
	return out, nil
}

// mockKVStore is an in-memory implementation of the consumer interface.
type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttls   []time.Duration
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls = append(m.ttls, ttl)
	return nil
}

func newTestCachedDetector(t *testing.T, inner *mockDetector) (*CachedDetector, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}

func mustDocs(t *testing.T, bodies ...string) []domdoc.Document {
	t.Helper()
	out := make([]domdoc.Document, len(bodies))
	for i, b := range bodies {
		d, err := domdoc.New("doc", b, 0)
		if err != nil {
			t.Fatalf("new document: %v", err)
		}
		out[i] = d
	}
	return out
}

func mustNamedDoc(t *testing.T, name, body string) []domdoc.Document {
	t.Helper()
	d, err := domdoc.New(name, body, 0)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return []domdoc.Document{d}
}
