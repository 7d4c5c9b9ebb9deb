package attribution

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const storeContextKey = "attribution.store"

// BackgroundHeader marks requests issued by jobs rather than visitors
const BackgroundHeader = "X-Background-Job"

// MiddlewareOptions tunes the capture middleware
type MiddlewareOptions struct {
	CookieDomain string
	// SkipPrefixes are path prefixes that never capture, e.g. the admin API
	SkipPrefixes []string
	Logger       *zap.Logger
}

// Middleware binds a cookie store to each request and captures attribution
// parameters from the query string on visitor-facing routes.
func Middleware(tracker *Tracker, opts MiddlewareOptions) gin.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		store := NewCookieStore(c.Writer, c.Request, opts.CookieDomain)
		c.Set(storeContextKey, store)

		if !skipCapture(c, opts.SkipPrefixes) {
			if n := tracker.Capture(c.Request.URL.Query(), store); n > 0 {
				log.Debug("Captured attribution parameters",
					zap.Int("count", n),
					zap.String("path", c.Request.URL.Path))
			}
		}

		c.Next()
	}
}

// StoreFrom returns the request's attribution store, or nil when the
// middleware did not run.
func StoreFrom(c *gin.Context) Store {
	v, ok := c.Get(storeContextKey)
	if !ok {
		return nil
	}
	store, _ := v.(Store)
	return store
}

func skipCapture(c *gin.Context, prefixes []string) bool {
	if c.GetHeader(BackgroundHeader) != "" {
		return true
	}
	path := c.Request.URL.Path
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
