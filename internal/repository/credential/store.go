// Package credential resolves detector tokens kept in the key-value store.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/scanguard/internal/db"
	"github.com/kailas-cloud/scanguard/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "credential:"

// store is the consumer interface for credential lookups (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Store reads tokens by reference name and keeps them in an expiring in-memory cache.
// Safe for concurrent use.
type Store struct {
	store      store
	cache      *expirable.LRU[string, string]
	cacheTotal *prometheus.CounterVec
}

// NewStore creates a credential store. size bounds the number of cached references;
// ttl bounds how long a rotated token can still be served from memory.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func NewStore(s store, size int, ttl time.Duration, cacheTotal *prometheus.CounterVec) *Store {
	if size <= 0 {
		size = 16
	}
	return &Store{
		store:      s,
		cache:      expirable.NewLRU[string, string](size, nil, ttl),
		cacheTotal: cacheTotal,
	}
}

// Provider returns a credential provider bound to ref.
func (s *Store) Provider(ref string) domain.CredentialProvider {
	return provider{store: s, ref: ref}
}

// Token returns the token stored under ref.
func (s *Store) Token(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty credential reference: %w", domain.ErrCredentialUnavailable)
	}
	if tok, ok := s.cache.Get(ref); ok {
		s.incCache("hit")
		return tok, nil
	}
	s.incCache("miss")

	data, err := s.store.Get(ctx, keyPrefix+ref)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", fmt.Errorf("credential %q not found: %w", ref, domain.ErrCredentialUnavailable)
		}
		return "", fmt.Errorf("read credential %q: %w: %w", ref, domain.ErrCredentialUnavailable, err)
	}

	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("credential %q is empty: %w", ref, domain.ErrCredentialUnavailable)
	}
	s.cache.Add(ref, tok)
	return tok, nil
}

// Invalidate drops a cached token, forcing the next call to read the store.
func (s *Store) Invalidate(ref string) {
	s.cache.Remove(ref)
}

func (s *Store) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}

type provider struct {
	store *Store
	ref   string
}

func (p provider) Token(ctx context.Context) (string, error) {
	return p.store.Token(ctx, p.ref)
}

// Chain tries providers in order and returns the first token obtained.
type Chain []domain.CredentialProvider

// Token implements domain.CredentialProvider.
func (c Chain) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		tok, err := p.Token(ctx)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no credential provider configured: %w", domain.ErrCredentialUnavailable)
	}
	return "", fmt.Errorf("all credential providers failed: %w", errors.Join(errs...))
}
