package attribution

import (
	"net/url"
	"strings"
	"time"

	"ghl-connector/pkg/models"
)

// DefaultTTL is how long a captured attribution value is kept for a visitor
const DefaultTTL = 90 * 24 * time.Hour

// Store persists attribution values for one visitor between the landing
// visit and the form submission.
type Store interface {
	Get(key string) string
	Set(key, value string, ttl time.Duration)
}

// Tracker captures attribution parameters from query strings and reads them back.
type Tracker struct {
	ttl time.Duration
}

// NewTracker creates a tracker whose captured values live for ttl.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{ttl: ttl}
}

// Capture stores every tracked parameter present in query with a non-empty
// value. Absent or empty parameters leave previously captured values alone.
func (t *Tracker) Capture(query url.Values, store Store) int {
	captured := 0
	for _, key := range models.TrackedParams {
		value := sanitize(query.Get(key))
		if value == "" {
			continue
		}
		store.Set(key, value, t.ttl)
		captured++
	}
	return captured
}

// GetTrackedParameters returns the stored values, omitting keys with no value.
func (t *Tracker) GetTrackedParameters(store Store) models.AttributionSnapshot {
	params := models.AttributionSnapshot{}
	for _, key := range models.TrackedParams {
		if value := sanitize(store.Get(key)); value != "" {
			params[key] = value
		}
	}
	return params
}

// GetParameter returns one stored value, or "" for unknown or absent keys.
func (t *Tracker) GetParameter(store Store, key string) string {
	if !models.IsTrackedParam(key) {
		return ""
	}
	return sanitize(store.Get(key))
}

// sanitize trims the value and drops control characters and markup brackets.
func sanitize(value string) string {
	value = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '<' || r == '>' {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(value)
}
