package session

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StateTTL bounds how long a started OAuth flow may take to complete.
const StateTTL = 10 * time.Minute

// StateRecord is the server side of one in-flight OAuth flow, keyed by the
// state nonce sent to the identity provider.
type StateRecord struct {
	RedirectTarget string
	ExpiresAt      time.Time
}

// StateStore holds OAuth state nonces. A nonce is consumed exactly once:
// the first Consume removes it, so a replayed callback sees an unknown state.
type StateStore struct {
	cache *ttlcache.Cache[string, StateRecord]
}

func NewStateStore() *StateStore {
	cache := ttlcache.New[string, StateRecord](
		ttlcache.WithTTL[string, StateRecord](StateTTL),
		ttlcache.WithDisableTouchOnHit[string, StateRecord](),
	)
	go cache.Start()
	return &StateStore{cache: cache}
}

// Begin records a new flow and returns its nonce.
func (s *StateStore) Begin(redirectTarget string) string {
	nonce := NewToken()
	s.cache.Set(nonce, StateRecord{
		RedirectTarget: redirectTarget,
		ExpiresAt:      time.Now().Add(StateTTL),
	}, ttlcache.DefaultTTL)
	return nonce
}

// Consume removes and returns the record for a nonce. Reports false for an
// unknown, already-consumed, or expired nonce.
func (s *StateStore) Consume(nonce string) (StateRecord, bool) {
	item := s.cache.Get(nonce)
	if item == nil {
		return StateRecord{}, false
	}
	rec := item.Value()
	s.cache.Delete(nonce)
	if !time.Now().Before(rec.ExpiresAt) {
		return StateRecord{}, false
	}
	return rec, true
}

func (s *StateStore) Close() {
	s.cache.Stop()
}
