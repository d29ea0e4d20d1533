package session

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps sessions in a process-local expiring map.
type MemoryStore struct {
	cache *ttlcache.Cache[string, *Session]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cache := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Session](),
	)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, bool) {
	item := m.cache.Get(token)
	if item == nil {
		return nil, false
	}
	s := item.Value()
	if s.Expired(time.Now()) {
		m.cache.Delete(token)
		return nil, false
	}
	return s, true
}

func (m *MemoryStore) Put(_ context.Context, s *Session) {
	m.cache.Set(s.Token, s, time.Until(s.ExpiresAt))
}

func (m *MemoryStore) Delete(_ context.Context, token string) {
	m.cache.Delete(token)
}

func (m *MemoryStore) SweepExpired(_ context.Context) {
	m.cache.DeleteExpired()
}

func (m *MemoryStore) Close() {
	m.cache.Stop()
}
