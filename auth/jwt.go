package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Context keys for caller identity
const (
	AccountKey = "account"
	RoleKey    = "role"
	ClaimsKey  = "claims"
)

// Roles carried in token claims
const (
	RolePlayer   = "player"
	RoleOperator = "operator"
	RoleService  = "service"
)

// Claims represents the JWT claims structure
type Claims struct {
	Account string `json:"account"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// JWTMiddleware creates a JWT authentication middleware. It rejects missing
// or invalid bearer tokens and stores account and role in the gin context.
func JWTMiddleware(secret string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn().Str("path", c.Request.URL.Path).Msg("Missing Authorization header")
			unauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn().Msg("Invalid Authorization header format")
			unauthorized(c, "Invalid Authorization header format. Expected: Bearer <token>")
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to parse JWT token")
			unauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			logger.Warn().Msg("Invalid token claims")
			unauthorized(c, "Invalid token claims")
			return
		}

		role := claims.Role
		if role == "" {
			role = RolePlayer
		}

		c.Set(AccountKey, claims.Account)
		c.Set(RoleKey, role)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

// RequireRole creates a middleware that rejects callers without the role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, _ := GetRole(c); got != role {
			errorResp := types.ErrorResponse{
				StatusCode: http.StatusForbidden,
				IsSuccess:  false,
				Error: types.ErrorDetail{
					Timestamp:    time.Now().Format(time.RFC3339),
					Path:         c.Request.URL.Path,
					ErrorMessage: "Insufficient privileges",
				},
			}
			c.AbortWithStatusJSON(http.StatusForbidden, errorResp)
			return
		}
		c.Next()
	}
}

// GetAccount extracts the caller account from context
func GetAccount(c *gin.Context) (string, bool) {
	account, exists := c.Get(AccountKey)
	if !exists {
		return "", false
	}
	str, ok := account.(string)
	return str, ok
}

// GetRole extracts the caller role from context
func GetRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(RoleKey)
	if !exists {
		return "", false
	}
	str, ok := role.(string)
	return str, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	obj, ok := claims.(*Claims)
	return obj, ok
}

// GenerateToken issues a signed JWT for an account with a role
func GenerateToken(secret, account, role string, expiration time.Duration) (string, error) {
	claims := &Claims{
		Account: account,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func unauthorized(c *gin.Context, message string) {
	errorResp := types.ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		IsSuccess:  false,
		Error: types.ErrorDetail{
			Timestamp:    time.Now().Format(time.RFC3339),
			Path:         c.Request.URL.Path,
			ErrorMessage: message,
		},
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResp)
}
