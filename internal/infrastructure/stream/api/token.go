// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

const (
	// DefaultTokenTTL is the lifetime of server and user tokens
	DefaultTokenTTL = time.Hour
	// tokenExpiryLeeway renews cached tokens ahead of their expiry
	tokenExpiryLeeway = 60 * time.Second
	// tokenIssuedAtSkew backdates iat to absorb clock drift with Stream
	tokenIssuedAtSkew = 5 * time.Second
)

// TokenIssuer signs Stream JWTs with the application API secret.
type TokenIssuer struct {
	apiSecret []byte
	now       func() time.Time
}

// NewTokenIssuer creates a token issuer for the given API secret.
func NewTokenIssuer(apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiSecret: []byte(apiSecret), now: time.Now}
}

// ServerToken issues a server-side token used to authenticate REST calls.
func (i *TokenIssuer) ServerToken(ttl time.Duration) (string, time.Time, error) {
	return i.sign(ttl, map[string]any{"server": true})
}

// UserToken issues a token that lets userID connect as a call participant.
func (i *TokenIssuer) UserToken(userID string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	return i.sign(ttl, map[string]any{"user_id": userID})
}

func (i *TokenIssuer) sign(ttl time.Duration, claims map[string]any) (string, time.Time, error) {
	if len(i.apiSecret) == 0 {
		return "", time.Time{}, fmt.Errorf("stream api secret not configured")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := i.now().UTC()
	expiry := now.Add(ttl)
	builder := jwt.NewBuilder().
		IssuedAt(now.Add(-tokenIssuedAtSkew)).
		Expiration(expiry)
	for k, v := range claims {
		builder = builder.Claim(k, v)
	}

	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, i.apiSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), expiry, nil
}

// serverTokenSource implements oauth2.TokenSource over server tokens
type serverTokenSource struct {
	issuer *TokenIssuer
	ttl    time.Duration
}

// Token implements the oauth2.TokenSource interface
func (s *serverTokenSource) Token() (*oauth2.Token, error) {
	signed, expiry, err := s.issuer.ServerToken(s.ttl)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "jwt",
		Expiry:      expiry.Add(-tokenExpiryLeeway),
	}, nil
}

// authTransport authenticates requests the way Stream expects: the raw JWT
// in Authorization plus a stream-auth-type header.
type authTransport struct {
	source oauth2.TokenSource
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get stream token: %w", err)
	}

	// RoundTrippers must not modify the original request
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", token.AccessToken)
	r.Header.Set("stream-auth-type", "jwt")

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
