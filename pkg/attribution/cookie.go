package attribution

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CookiePrefix namespaces attribution cookies
const CookiePrefix = "aqm_ghl_"

// CookieStore is a Store backed by the visitor's browser cookies. Values are
// query-escaped on the wire. Values written during a request are visible to
// later reads in the same request.
type CookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	domain  string
	written map[string]string
}

// NewCookieStore binds a store to one request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request, domain string) *CookieStore {
	return &CookieStore{
		w:       w,
		r:       r,
		domain:  domain,
		written: map[string]string{},
	}
}

func (s *CookieStore) Get(key string) string {
	name := CookiePrefix + key
	if v, ok := s.written[name]; ok {
		return v
	}
	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return value
}

func (s *CookieStore) Set(key, value string, ttl time.Duration) {
	name := CookiePrefix + key
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		Domain:   s.domain,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   isHTTPS(s.r),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.written[name] = value
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
