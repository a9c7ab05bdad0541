package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/plateful/plateful-backend/internal/platform/logger"
	"github.com/plateful/plateful-backend/internal/requestdata"
)

const anonHeader = "X-Anon-Id"

// IdentityMiddleware resolves the caller identity. Token issuing lives
// upstream; this only verifies and extracts. Guests are first-class:
// feed reads never require a user.
type IdentityMiddleware struct {
	log       *logger.Logger
	jwtSecret []byte
}

func NewIdentityMiddleware(log *logger.Logger, jwtSecret string) *IdentityMiddleware {
	return &IdentityMiddleware{
		log:       log.With("middleware", "IdentityMiddleware"),
		jwtSecret: []byte(jwtSecret),
	}
}

// Attach populates requestdata for every request. A presented but
// invalid token is rejected; no token at all falls back to the
// anonymous header, minting a token when the client has none yet.
func (im *IdentityMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := &requestdata.RequestData{}

		if tokenString := extractBearer(c); tokenString != "" {
			userID, err := im.parseUserID(tokenString)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{"message": "invalid token", "code": "unauthorized"},
				})
				return
			}
			rd.UserID = userID
		} else {
			anonID := strings.TrimSpace(c.GetHeader(anonHeader))
			if _, err := uuid.Parse(anonID); err != nil {
				anonID = uuid.NewString()
			}
			rd.AnonID = anonID
			c.Header(anonHeader, anonID)
		}

		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireUser gates mutation endpoints on an authenticated caller.
func (im *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if !rd.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "authentication required", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func (im *IdentityMiddleware) parseUserID(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return im.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject is not a user id: %w", err)
	}
	return userID, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
