package tokengenerator

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token name constants
const (
	ACCESS_TOKEN_NAME  = "access_token"
	REFRESH_TOKEN_NAME = "refresh_token"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 24 * time.Hour
)

// JwtService provides JWT token generation and cookie management
type JwtService struct {
	TokenGenerator TokenGenerator
	CookieSetter   CookieSetter

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// JwtServiceOption is a function that configures a JwtService
type JwtServiceOption func(*JwtService)

// WithCookieSetter sets the cookie setter
func WithCookieSetter(cookieSetter CookieSetter) JwtServiceOption {
	return func(js *JwtService) {
		js.CookieSetter = cookieSetter
	}
}

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) JwtServiceOption {
	return func(js *JwtService) {
		js.AccessTokenExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) JwtServiceOption {
	return func(js *JwtService) {
		js.RefreshTokenExpiry = expiry
	}
}

// NewJwtService creates a new JwtService
func NewJwtService(tokenGenerator TokenGenerator, options ...JwtServiceOption) *JwtService {
	js := &JwtService{
		TokenGenerator:     tokenGenerator,
		CookieSetter:       NewCookieSetter(true, true),
		AccessTokenExpiry:  DefaultAccessTokenExpiry,
		RefreshTokenExpiry: DefaultRefreshTokenExpiry,
	}

	for _, option := range options {
		option(js)
	}

	return js
}

// GenerateToken generates a token with the expiry matching the token name
func (js *JwtService) GenerateToken(tokenName, subject string, extraClaims map[string]interface{}) (string, time.Time, error) {
	expiry := js.AccessTokenExpiry
	if tokenName == REFRESH_TOKEN_NAME {
		expiry = js.RefreshTokenExpiry
	}

	return js.TokenGenerator.GenerateToken(subject, expiry, extraClaims)
}

// ParseToken parses and validates a token
func (js *JwtService) ParseToken(tokenStr string) (*jwt.Token, error) {
	return js.TokenGenerator.ParseToken(tokenStr)
}

// TokenJTI returns the JTI claim of a token issued by this service
func (js *JwtService) TokenJTI(tokenStr string) (string, error) {
	token, err := js.ParseToken(tokenStr)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return "", fmt.Errorf("token has no jti claim")
	}
	return jti, nil
}

// SetCookie sets a token cookie
func (js *JwtService) SetCookie(w http.ResponseWriter, tokenName, tokenValue string, expire time.Time) error {
	return js.CookieSetter.SetCookie(w, tokenName, tokenValue, expire)
}

// ClearCookie clears a token cookie
func (js *JwtService) ClearCookie(w http.ResponseWriter, tokenName string) error {
	return js.CookieSetter.ClearCookie(w, tokenName)
}

// ClearAuthCookies clears the access and refresh token cookies
func (js *JwtService) ClearAuthCookies(w http.ResponseWriter) {
	js.ClearCookie(w, ACCESS_TOKEN_NAME)
	js.ClearCookie(w, REFRESH_TOKEN_NAME)
}

// GenerateAndSetCookie generates a token and sets it as a cookie, returning
// the token string and its expiry
func (js *JwtService) GenerateAndSetCookie(w http.ResponseWriter, tokenName, subject string, extraClaims map[string]interface{}) (string, time.Time, error) {
	token, expiry, err := js.GenerateToken(tokenName, subject, extraClaims)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := js.SetCookie(w, tokenName, token, expiry); err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}
