// Package identity acquires bearer tokens for the two platform audiences
// and resolves the acting principal from the issued token.
package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Resource audiences the pipelines request tokens for.
const (
	GraphScope = "https://graph.microsoft.com/.default"
	ARMScope   = "https://management.azure.com/.default"
)

// TokenSource builds a client-credentials token source for one resource
// audience. Tokens are cached and refreshed by the oauth2 machinery.
func TokenSource(ctx context.Context, tenantID, clientID, clientSecret, scope string) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		Scopes:       []string{scope},
	}
	return cfg.TokenSource(ctx)
}

// HTTPClient wraps base so every request carries a bearer token from ts.
// base may be nil for the default transport.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return oauth2.NewClient(ctx, ts)
}

// Principal identifies the acting credential as the platform sees it.
type Principal struct {
	ObjectID string
	TenantID string
	Name     string
}

// Current extracts the acting principal from an access token. The token is
// parsed without signature verification: the issuer minted it moments ago
// and we only need the subject identifiers, not an authentication decision.
func Current(ts oauth2.TokenSource) (*Principal, error) {
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire token: %w", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	p := &Principal{}
	if oid, ok := claims["oid"].(string); ok {
		p.ObjectID = oid
	}
	if tid, ok := claims["tid"].(string); ok {
		p.TenantID = tid
	}
	// Service principals carry appid, users carry name.
	if name, ok := claims["name"].(string); ok {
		p.Name = name
	} else if appID, ok := claims["appid"].(string); ok {
		p.Name = appID
	}

	if p.ObjectID == "" {
		return nil, fmt.Errorf("access token carries no object id claim")
	}

	return p, nil
}
