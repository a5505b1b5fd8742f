package requestid

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const contextKey = "request_id"

var upstreamID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware keeps a well-formed upstream X-Request-ID or generates a UUID, then
// stores it on the context and echoes it back.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if !upstreamID.MatchString(id) {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Value returns the request id stored by Middleware, or "".
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
