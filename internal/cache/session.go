package cache

import (
	"time"

	"bitebook/internal/model"
)

// DefaultTTL is how long a cached list is served before a fetch is required.
const DefaultTTL = 5 * time.Minute

// Session holds the most recently fetched full list of places. It has a
// single slot and is only touched from the UI update loop, so it carries no lock.
type Session struct {
	ttl time.Duration
	now func() time.Time

	places    []model.Place
	timestamp time.Time
	filled    bool
}

// Option configures a Session.
type Option func(*Session)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Session) { s.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an empty cache.
func NewSession(opts ...Option) *Session {
	s := &Session{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached list if one exists, force is false, and it is
// younger than the TTL.
func (s *Session) Get(force bool) ([]model.Place, bool) {
	if force || !s.filled {
		return nil, false
	}
	if s.now().Sub(s.timestamp) >= s.ttl {
		return nil, false
	}
	return clonePlaces(s.places), true
}

// Set overwrites the slot with places, stamped with the current time.
func (s *Session) Set(places []model.Place) {
	s.places = clonePlaces(places)
	s.timestamp = s.now()
	s.filled = true
}

// Clear empties the slot.
func (s *Session) Clear() {
	s.places = nil
	s.filled = false
}

// Age reports how long ago the slot was filled.
func (s *Session) Age() (time.Duration, bool) {
	if !s.filled {
		return 0, false
	}
	return s.now().Sub(s.timestamp), true
}

func clonePlaces(in []model.Place) []model.Place {
	if in == nil {
		return nil
	}
	out := make([]model.Place, len(in))
	copy(out, in)
	return out
}
