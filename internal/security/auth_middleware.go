package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"query-gateway/pkg/response"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-Key"
	bearerPrefix        = "Bearer "
)

// APIKeyAuth admits requests presenting the configured API key, either as the
// raw Authorization header, as a Bearer token, or in X-API-Key. An empty key
// rejects everything.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !apiKeyPresented(c, apiKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.UnauthorizedResponse())
			return
		}

		c.Next()
	}
}

// DocsTokenAuth guards the OpenAPI document when a token is configured. The
// token is read from a Bearer Authorization header or the token query
// parameter.
func DocsTokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.Query("token")
		if header := c.GetHeader(HeaderAuthorization); strings.HasPrefix(header, bearerPrefix) {
			presented = strings.TrimPrefix(header, bearerPrefix)
		}

		if !secretEqual(presented, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.UnauthorizedResponse())
			return
		}

		c.Next()
	}
}

func apiKeyPresented(c *gin.Context, apiKey string) bool {
	if apiKey == "" {
		return false
	}

	var candidates []string
	if header := c.GetHeader(HeaderAuthorization); header != "" {
		candidates = append(candidates, header)
		if strings.HasPrefix(header, bearerPrefix) {
			candidates = append(candidates, strings.TrimPrefix(header, bearerPrefix))
		}
	}
	if header := c.GetHeader(HeaderAPIKey); header != "" {
		candidates = append(candidates, header)
	}

	for _, candidate := range candidates {
		if secretEqual(candidate, apiKey) {
			return true
		}
	}
	return false
}

func secretEqual(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
