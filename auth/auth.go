// Package auth provides bearer credentials for calls to the target API.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/m4xw311/restgpt/config"
	"github.com/m4xw311/restgpt/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource picks a token flow from cfg: a static access token, a refresh
// token exchange, or the client-credentials grant, in that order. It returns
// nil when no credentials are configured.
func TokenSource(ctx context.Context, cfg config.Auth) (oauth2.TokenSource, error) {
	switch {
	case cfg.AccessToken != "":
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   "Bearer",
		}), nil
	case cfg.RefreshToken != "":
		if cfg.ClientID == "" || cfg.TokenURL == "" {
			return nil, errors.New("refresh token flow needs auth.client_id and auth.token_url")
		}
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       cfg.Scopes,
		}
		return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}), nil
	case cfg.ClientID != "" || cfg.ClientSecret != "":
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
			return nil, errors.New("client credentials flow needs auth.client_id, auth.client_secret and auth.token_url")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return cc.TokenSource(ctx), nil
	default:
		return nil, nil
	}
}

// HTTPClient returns a client that attaches tokens from ts to every request.
// A nil ts yields a plain client with the timeout.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	if ts == nil {
		return &http.Client{Timeout: timeout}
	}
	c := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
	c.Timeout = timeout
	return c
}
