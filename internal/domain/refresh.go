package domain

import "time"

// DefaultRefreshInterval is the minimum time between two fetches.
const DefaultRefreshInterval = time.Hour

// RefreshState remembers the last dispatched fetch. The zero value means nothing
// has been fetched yet.
type RefreshState struct {
	LastURL   string
	LastFetch time.Time
}

// ShouldFetch reports whether candidateURL may be fetched now. Both conditions
// must hold: the URL differs from the last one and more than an hour has passed.
func ShouldFetch(candidateURL, lastURL string, lastFetch, now time.Time) bool {
	return RefreshPolicy{}.ShouldFetch(candidateURL, lastURL, lastFetch, now)
}

// RefreshPolicy throttles fetches by URL and elapsed time.
type RefreshPolicy struct {
	// MinInterval defaults to DefaultRefreshInterval when zero.
	MinInterval time.Duration
}

// ShouldFetch is the policy form of the package-level ShouldFetch.
func (p RefreshPolicy) ShouldFetch(candidateURL, lastURL string, lastFetch, now time.Time) bool {
	interval := p.MinInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return candidateURL != lastURL && now.Sub(lastFetch) > interval
}

// Admit checks candidateURL against state and, when accepted, records the
// dispatch in state before returning true. State is updated at dispatch time so a
// failed fetch is not retried until the interval elapses.
func (p RefreshPolicy) Admit(state *RefreshState, candidateURL string, now time.Time) bool {
	if !p.ShouldFetch(candidateURL, state.LastURL, state.LastFetch, now) {
		return false
	}
	state.LastURL = candidateURL
	state.LastFetch = now
	return true
}
