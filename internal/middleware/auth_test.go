package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vendorhub/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(GetJWTSecret())
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func testClaims(role string, vendorID *uuid.UUID) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":   uuid.New().String(),
		"email": "user@example.com",
		"name":  "Test User",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if vendorID != nil {
		claims["vendor_id"] = vendorID.String()
	}
	return claims
}

func newAuthRouter(roles ...model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireRole(roles...), func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no actor"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": actor.Role})
	})
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireRoleMissingToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	if w := doRequest(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestRequireRoleInvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	if w := doRequest(router, "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestRequireRoleUnknownRoleRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin, model.RoleVendor)

	token := signToken(t, testClaims("SUPERUSER", nil))
	if w := doRequest(router, token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown role, got %d", w.Code)
	}
}

func TestRequireRoleForbiddenRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	vendorID := uuid.New()
	token := signToken(t, testClaims(string(model.RoleVendor), &vendorID))
	if w := doRequest(router, token); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for vendor on admin route, got %d", w.Code)
	}
}

func TestRequireRoleAllowsActor(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	token := signToken(t, testClaims(string(model.RoleAdmin), nil))
	if w := doRequest(router, token); w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestRequireRoleExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	claims := testClaims(string(model.RoleAdmin), nil)
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signToken(t, claims)
	if w := doRequest(router, token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestRequireRoleCookieToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter(model.RoleAdmin)

	token := signToken(t, testClaims(string(model.RoleAdmin), nil))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 via cookie token, got %d", w.Code)
	}
}

func TestRequireServiceKey(t *testing.T) {
	t.Setenv("SERVICE_API_KEY", "erp-shared-key")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/erp", RequireServiceKey(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/erp", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without service key, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/erp", nil)
	req.Header.Set("X-Service-Key", "wrong-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong service key, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/erp", nil)
	req.Header.Set("X-Service-Key", "erp-shared-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for valid service key, got %d", w.Code)
	}
}
