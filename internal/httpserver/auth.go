package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"projecthub/internal/handler"
	"projecthub/pkg/auth"
)

// SubjectKey is the gin context key holding the verified token subject.
const SubjectKey = "subject"

// AuthMiddleware verifies the bearer token when one is present. Requests
// without an Authorization header pass through; the handlers decide whether
// they need a credential. The header itself is left untouched so it can be
// forwarded to the employee directory.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := auth.TokenFromHeader(header)
		if token == "" {
			unauthorized(c, "missing token")
			return
		}

		subject, err := auth.ParseJWT(token, jwtSecret)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}

		// 请求日志会带上 subject
		c.Set(SubjectKey, subject)

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, handler.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Details:   "uri=" + c.Request.URL.Path,
	})
}
