package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"vendorhub/internal/model"
	"vendorhub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorContextKey = "actor"

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// GetServiceKey returns the shared secret expected on machine-to-machine calls.
func GetServiceKey() string {
	key := os.Getenv("SERVICE_API_KEY")
	if key == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: SERVICE_API_KEY environment variable is required in production mode")
		}
		key = "default_service_key"
	}
	return key
}

// extractToken reads the bearer token from the access_token cookie first,
// falling back to the Authorization header.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// parseActor verifies the token and decodes the identity claims.
func parseActor(tokenString string) (model.Actor, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		return model.Actor{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, false
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return model.Actor{}, false
	}

	roleStr, _ := claims["role"].(string)
	role := model.Role(roleStr)
	if !role.Valid() {
		return model.Actor{}, false
	}

	actor := model.Actor{
		UserID: userID,
		Role:   role,
	}
	actor.Email, _ = claims["email"].(string)
	actor.Name, _ = claims["name"].(string)

	if vendorStr, ok := claims["vendor_id"].(string); ok && vendorStr != "" {
		if vendorID, err := uuid.Parse(vendorStr); err == nil {
			actor.VendorID = &vendorID
		}
	}

	return actor, true
}

// RequireRole validates the JWT and checks the actor's role against the
// allowed set. Roles are the closed model.Role enumeration — an unknown role
// in a token is rejected at parse time, it cannot fall through a branch.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error(http.StatusUnauthorized, "Authorization is missing or malformed"))
			return
		}

		actor, ok := parseActor(tokenString)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if actor.Role == role {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireServiceKey gates machine-to-machine (ERP) routes with a static shared
// secret. Binary trust: no per-caller identity is established.
func RequireServiceKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Service-Key")
		expected := GetServiceKey()
		if provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error(http.StatusUnauthorized, "Invalid or missing service credential"))
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated actor set by RequireRole.
func CurrentActor(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
