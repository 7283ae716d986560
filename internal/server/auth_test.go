package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_CheckAPIKey(t *testing.T) {
	auth := NewAuthenticator("my-api-key", "my-secret")

	assert.True(t, auth.CheckAPIKey("my-api-key"))
	assert.False(t, auth.CheckAPIKey("wrong-key"))
	assert.False(t, auth.CheckAPIKey(""))

	// Setup mode: no key accepts nothing
	assert.False(t, NewAuthenticator("", "secret").CheckAPIKey(""))
}

func TestAuthenticator_SignAndVerifyLink(t *testing.T) {
	auth := NewAuthenticator("api-key", "link-secret")

	token, expires, err := auth.SignLink("/api/download", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	claims, err := auth.VerifyLink(token, "/api/download")
	require.NoError(t, err)
	assert.Equal(t, "/api/download", claims.Path)
	assert.Equal(t, "hivedeck-drive", claims.Issuer)
}

func TestAuthenticator_LinkExpires(t *testing.T) {
	auth := NewAuthenticator("api-key", "link-secret")
	start := time.Now()
	auth.now = func() time.Time { return start }

	token, _, err := auth.SignLink("/api/thumbnails/4", 0)
	require.NoError(t, err)

	auth.now = func() time.Time { return start.Add(DefaultLinkTTL - time.Second) }
	_, err = auth.VerifyLink(token, "/api/thumbnails/4")
	assert.NoError(t, err)

	auth.now = func() time.Time { return start.Add(DefaultLinkTTL + time.Minute) }
	_, err = auth.VerifyLink(token, "/api/thumbnails/4")
	assert.Error(t, err)
}

func TestAuthenticator_LinkIsBoundToPath(t *testing.T) {
	auth := NewAuthenticator("api-key", "link-secret")

	token, _, err := auth.SignLink("/api/thumbnails/4", time.Minute)
	require.NoError(t, err)

	_, err = auth.VerifyLink(token, "/api/thumbnails/5")
	assert.ErrorIs(t, err, errLinkPath)
}

func TestAuthenticator_WrongSecret(t *testing.T) {
	token, _, err := NewAuthenticator("api-key", "secret1").SignLink("/api/download", time.Minute)
	require.NoError(t, err)

	_, err = NewAuthenticator("api-key", "secret2").VerifyLink(token, "/api/download")
	assert.Error(t, err)

	_, err = NewAuthenticator("api-key", "secret1").VerifyLink("invalid.token.here", "/api/download")
	assert.Error(t, err)
}

func TestAuthenticator_NoSecretDisablesLinks(t *testing.T) {
	token, _, err := NewAuthenticator("api-key", "secret").SignLink("/api/download", time.Minute)
	require.NoError(t, err)

	auth := NewAuthenticator("api-key", "")
	_, _, err = auth.SignLink("/api/download", time.Minute)
	assert.ErrorIs(t, err, errLinksDisabled)

	_, err = auth.VerifyLink(token, "/api/download")
	assert.ErrorIs(t, err, errLinksDisabled)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer my-token": "my-token",
		"raw-token":       "raw-token",
		"":                "",
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(c), header)
	}
}

func TestLinkToken_OnlyOnGet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/download?token=abc", nil)
	assert.Equal(t, "abc", linkToken(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/delete?token=abc", nil)
	assert.Empty(t, linkToken(c))
}
