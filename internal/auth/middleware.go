package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "authUserID"

// GetUserID retrieves the authenticated subject from context.
func GetUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(userIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// JWTMiddleware validates bearer tokens issued by the identity provider and
// injects the subject into the request context. History and stats routes sit
// behind it.
func JWTMiddleware(secret, audience string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	audience = strings.TrimSpace(audience)

	return func(c *gin.Context) {
		subject, err := authenticate(c, secret, audience)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		injectSubject(c, subject)
		c.Next()
	}
}

// OptionalJWTMiddleware attaches the caller identity when a valid bearer
// token is present and lets the request through anonymously otherwise. The
// prediction endpoint uses it so records get attributed to their owner
// without closing the endpoint to unauthenticated callers.
func OptionalJWTMiddleware(secret, audience string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	audience = strings.TrimSpace(audience)

	return func(c *gin.Context) {
		if subject, err := authenticate(c, secret, audience); err == nil {
			injectSubject(c, subject)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, secret, audience string) (string, error) {
	tokenString, err := extractBearerToken(c.Request.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}

	if secret == "" {
		return "", errors.New("missing JWT secret")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	if audience != "" && !containsAudience(claims.Audience, audience) {
		return "", errors.New("invalid audience")
	}

	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}

	return claims.Subject, nil
}

func injectSubject(c *gin.Context, subject string) {
	ctx := context.WithValue(c.Request.Context(), userIDKey, subject)
	c.Request = c.Request.WithContext(ctx)
	c.Set(string(userIDKey), subject)
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func containsAudience(claims jwt.ClaimStrings, expected string) bool {
	for _, aud := range claims {
		if aud == expected {
			return true
		}
	}
	return false
}
