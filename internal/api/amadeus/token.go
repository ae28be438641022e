package amadeus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/FACorreiaa/tastetrail-itinerary/internal/types"
)

const tokenPath = "/v1/security/oauth2/token"

// TokenSource yields bearer tokens for the hotel provider.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

var _ TokenSource = (*TokenProvider)(nil)

// TokenProvider exchanges the client credentials for a fresh access token on every call.
type TokenProvider struct {
	cfg    clientcredentials.Config
	hc     *http.Client
	logger *slog.Logger
}

func NewTokenProvider(baseURL, clientID, clientSecret string, hc *http.Client, logger *slog.Logger) *TokenProvider {
	return &TokenProvider{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(baseURL, "/") + tokenPath,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		hc:     hc,
		logger: logger.With(slog.String("component", "amadeus_token")),
	}
}

// Token returns an access token. Failures wrap types.ErrUpstreamUnavailable.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
		return "", fmt.Errorf("%w: amadeus client credentials not configured", types.ErrUpstreamUnavailable)
	}
	if p.hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.hc)
	}

	tok, err := p.cfg.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			p.logger.WarnContext(ctx, "Token exchange rejected", slog.Int("status", re.Response.StatusCode))
		} else {
			p.logger.WarnContext(ctx, "Token exchange failed", slog.Any("error", err))
		}
		return "", fmt.Errorf("%w: amadeus token: %w", types.ErrUpstreamUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: amadeus token: empty access token", types.ErrUpstreamUnavailable)
	}
	p.logger.DebugContext(ctx, "Retrieved access token")
	return tok.AccessToken, nil
}
