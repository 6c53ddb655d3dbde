package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/pkg/middleware/requestid"
)

const (
	cacheHitKey    = "cache_hit"
	cacheHeaderKey = "X-Cache"
)

// SetCacheHit records whether the response was served from cache, both as
// a header and for the response meta.
func SetCacheHit(c *gin.Context, hit bool) {
	status := "MISS"
	if hit {
		status = "HIT"
	}
	c.Header(cacheHeaderKey, status)
	c.Set(cacheHitKey, hit)
}

// ResponseMeta builds the meta block for the envelope.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := make(map[string]interface{})
	if hit, exists := c.Get(cacheHitKey); exists {
		meta[cacheHitKey] = hit
	}
	if reqID := requestid.Value(c); reqID != "" {
		meta["request_id"] = reqID
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
