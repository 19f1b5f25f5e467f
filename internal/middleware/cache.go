package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// WithResponseMeta seeds a metadata map on the request context and stamps
// the total processing time once the handler chain has finished. Handlers
// contribute additional entries through SetCacheHit and read the final map
// back with ExtractMeta when building the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := metaFor(c)
		if _, ok := meta["processing_time_ms"]; !ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit marks whether the current response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)["cache_hit"] = hit
}

// ExtractMeta returns the metadata accumulated for the current request,
// or nil when the meta middleware is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(responseMetaKey); ok {
		if meta, ok := v.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

func metaFor(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
