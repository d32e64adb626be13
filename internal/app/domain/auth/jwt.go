package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDKey        = "user_id"
	emailKey         = "email"
	authenticatedKey = "authenticated"
	anonymousUserID  = "anonymous"
)

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	SecretKey string
	Issuer    string
	Logger    *zap.Logger
	Optional  bool // If true, missing/invalid tokens won't block the request
}

// Claims are the identity provider claims the API relies on. The subject is the clerkId.
type Claims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct{}

func NewJWTService() *JWTService {
	return &JWTService{}
}

// ValidateToken parses and validates a JWT token
func (s *JWTService) ValidateToken(config JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// JWTAuthMiddleware verifies the bearer token and stores the clerkId in the context.
func JWTAuthMiddleware(config JWTConfig) gin.HandlerFunc {
	service := NewJWTService()
	return func(c *gin.Context) {
		var tokenString string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		if tokenString == "" {
			if config.Optional {
				c.Set(userIDKey, anonymousUserID)
				c.Set(authenticatedKey, false)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := service.ValidateToken(config, tokenString)
		if err != nil {
			if config.Logger != nil {
				config.Logger.Debug("token rejected", zap.Error(err))
			}
			if config.Optional {
				c.Set(userIDKey, anonymousUserID)
				c.Set(authenticatedKey, false)
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(emailKey, claims.Email)
		c.Set(authenticatedKey, true)
		c.Next()
	}
}

// UserID returns the verified clerkId, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if !c.GetBool(authenticatedKey) {
		return ""
	}
	return c.GetString(userIDKey)
}

// SetUser marks the request as authenticated by userID. Used by tests and internal callers.
func SetUser(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
	c.Set(authenticatedKey, true)
}
