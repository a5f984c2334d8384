package commands

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/arm"
	"github.com/mspkit/delegate/internal/client"
	"github.com/mspkit/delegate/internal/config"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/identity"
	"github.com/mspkit/delegate/internal/logger"
	"github.com/mspkit/delegate/internal/retry"
)

type Globals struct {
	Debug      bool
	ConfigPath string
	Version    string
}

// setup loads the run configuration and installs the process logger.
// Every command starts here.
func setup(globals *Globals) (*config.Config, error) {
	log.Logger = logger.Setup(globals.Debug)

	cfg, err := config.Load(globals.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{Attempts: cfg.Retry.Count, Delay: cfg.Retry.Delay()}
}

// newGraphClient builds the directory/entitlement client with a
// client-credentials bearer transport.
func newGraphClient(ctx context.Context, cfg *config.Config) (*graph.Client, error) {
	secret, err := cfg.ClientSecret()
	if err != nil {
		return nil, err
	}
	ts := identity.TokenSource(ctx, cfg.Credentials.TenantID, cfg.Credentials.ClientID, secret, identity.GraphScope)
	return graph.NewClient(cfg.GraphBaseURL, identity.HTTPClient(ctx, ts, nil)), nil
}

// newARMClient builds the resource-manager client plus the acting
// principal resolved from its token. The transport sits on a caching
// client: the delegation verifier re-reads the same role definitions
// across subscriptions.
func newARMClient(ctx context.Context, cfg *config.Config) (*arm.Client, *identity.Principal, error) {
	secret, err := cfg.ClientSecret()
	if err != nil {
		return nil, nil, err
	}
	ts := identity.TokenSource(ctx, cfg.Credentials.TenantID, cfg.Credentials.ClientID, secret, identity.ARMScope)

	principal, err := identity.Current(ts)
	if err != nil {
		return nil, nil, err
	}

	base := client.NewCachingHTTPClient(cfg.CacheDir)
	return arm.NewClient(cfg.ARMBaseURL, identity.HTTPClient(ctx, ts, base)), principal, nil
}
