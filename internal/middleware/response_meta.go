package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/intern-tracker-api/pkg/middleware/requestid"
)

const (
	metaContextKey = "response_meta"
	startedAtKey   = "response_started_at"
	cacheHeader    = "X-Cache"
)

// WithResponseMeta gives every request a metadata map that handlers can attach to the
// response envelope. The request id is always present.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(metaContextKey, meta)
		c.Set(startedAtKey, time.Now())
		c.Next()
	}
}

// SetCacheHit marks whether the payload came from cache, both in meta and the X-Cache header.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := metaFor(c)
	meta["cache_hit"] = hit
	if hit {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}
}

// ExtractMeta returns the request's metadata with processing time filled in, or nil
// when WithResponseMeta did not run.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(metaContextKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if started, ok := c.Get(startedAtKey); ok {
		if at, ok := started.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(at).Milliseconds()
		}
	}
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(metaContextKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(metaContextKey, meta)
	return meta
}
