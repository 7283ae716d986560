package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(auth *Authenticator) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(auth))
	ok := func(c *gin.Context) {
		method, _ := c.Get("auth_method")
		c.JSON(http.StatusOK, gin.H{"method": method})
	}
	router.GET("/api/download", ok)
	router.GET("/api/thumbnails/:id", ok)
	router.POST("/api/delete", ok)
	return router
}

func serve(router *gin.Engine, method, target, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidAPIKey(t *testing.T) {
	router := authRouter(NewAuthenticator("test-api-key", "test-secret"))

	w := serve(router, "GET", "/api/download", "Bearer test-api-key")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_key")
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := authRouter(NewAuthenticator("test-api-key", "test-secret"))

	w := serve(router, "GET", "/api/download", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidAPIKey(t *testing.T) {
	router := authRouter(NewAuthenticator("test-api-key", "test-secret"))

	w := serve(router, "GET", "/api/download", "Bearer invalid-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_SignedLink(t *testing.T) {
	auth := NewAuthenticator("test-api-key", "test-secret")
	router := authRouter(auth)

	token, _, err := auth.SignLink("/api/thumbnails/7", time.Minute)
	assert.NoError(t, err)

	w := serve(router, "GET", "/api/thumbnails/7?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "link")

	w = serve(router, "GET", "/api/thumbnails/8?token="+token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "links only open the path they were signed for")

	w = serve(router, "POST", "/api/delete?token="+token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "links never authorize mutations")
}

func TestAuthMiddleware_APIKeyNotAcceptedInQuery(t *testing.T) {
	router := authRouter(NewAuthenticator("test-api-key", "test-secret"))

	w := serve(router, "GET", "/api/download?token=test-api-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(5) // 5 requests per second

	// Should allow first 5 requests
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("test-client"))
	}

	// 6th request should be denied
	assert.False(t, limiter.Allow("test-client"))

	// Different client should be allowed
	assert.True(t, limiter.Allow("another-client"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2) // 2 requests per second

	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// First 2 requests should succeed
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"*"}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_SpecificOrigins(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://allowed.com", "http://also-allowed.com"}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Allowed origin
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "http://allowed.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://allowed.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Not allowed origin
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "http://not-allowed.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(logging.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()

	// Should not panic
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, req)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := NewRateLimiter(50)

	for i := 0; i < 50; i++ {
		limiter.Allow("client")
	}
	assert.False(t, limiter.Allow("client"))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, limiter.Allow("client"))
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf)

	router := gin.New()
	router.Use(LoggerMiddleware(log))
	router.GET("/items/:id", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/items/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := buf.String()
	assert.Contains(t, out, "request")
	assert.Contains(t, out, "/items/42")
	assert.Contains(t, out, "418")
}

func TestCORSMiddleware_ExposesDisposition(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"*"}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}
