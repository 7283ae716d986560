package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	linkIssuer = "hivedeck-drive"

	// DefaultLinkTTL bounds how long a signed transfer link stays usable.
	DefaultLinkTTL = 5 * time.Minute
)

var (
	errLinksDisabled = errors.New("signed links are not configured")
	errLinkPath      = errors.New("link was signed for another path")
)

// LinkClaims authorize one GET of one bridge path. Browsers cannot attach
// headers to <img src> or download anchors, so transfers carry these in
// the query string instead of the API key.
type LinkClaims struct {
	jwt.RegisteredClaims
	Path string `json:"path"`
}

// Authenticator checks the bridge API key and signs transfer links.
type Authenticator struct {
	apiKey []byte
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. An empty secret disables
// signed links; an empty API key disables the API entirely.
func NewAuthenticator(apiKey, secret string) *Authenticator {
	return &Authenticator{apiKey: []byte(apiKey), secret: []byte(secret), now: time.Now}
}

// CheckAPIKey reports whether key is the configured API key.
func (a *Authenticator) CheckAPIKey(key string) bool {
	if len(a.apiKey) == 0 || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), a.apiKey) == 1
}

// SignLink returns a token that authorizes GET path until ttl elapses.
func (a *Authenticator) SignLink(path string, ttl time.Duration) (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, errLinksDisabled
	}
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}

	now := a.now()
	expires := now.Add(ttl)
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    linkIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Path: path,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// VerifyLink checks a link token against the requested path.
func (a *Authenticator) VerifyLink(token, path string) (*LinkClaims, error) {
	if len(a.secret) == 0 {
		return nil, errLinksDisabled
	}

	claims := &LinkClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithIssuer(linkIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Path != path {
		return nil, errLinkPath
	}
	return claims, nil
}

// bearerToken reads the Authorization header, with or without the Bearer
// prefix.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return header
}

// linkToken reads a signed link from the query string. Only GET requests
// may use one.
func linkToken(c *gin.Context) string {
	if c.Request.Method != http.MethodGet {
		return ""
	}
	return c.Query("token")
}
