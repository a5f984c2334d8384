package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/config"
	"github.com/mspkit/delegate/internal/lighthouse"
	"github.com/mspkit/delegate/internal/scan"
)

// Onboard runs the delegation pipeline: gate on the eligibility scan, then
// deploy and verify the delegation template per eligible subscription.
type Onboard struct {
	Scanner  *scan.Scanner
	Deployer *lighthouse.Deployer
	Config   *config.Config
}

// Run scans as principalID and processes every eligible subscription.
// A failed deployment aborts that subscription's pipeline only; the other
// subscriptions still get their pass. An empty delegation list on verify
// is informational, not an error, and leaves the run in a success state.
func (o *Onboard) Run(ctx context.Context, principalID string, template, parameters json.RawMessage) (*OnboardReport, error) {
	scanResult, err := o.Scanner.Run(ctx, principalID)
	if err != nil {
		return nil, err
	}

	report := &OnboardReport{Scan: scanResult}

	log.Info().
		Int("eligible", len(scanResult.Eligible)).
		Int("ineligible", len(scanResult.Ineligible)).
		Int("disabled", len(scanResult.Disabled)).
		Msg("Subscription scan complete")

	expected := lighthouse.Expectation{
		GroupName: o.Config.Lighthouse.GroupName,
		RoleName:  o.Config.Lighthouse.RoleName,
	}

	for _, sub := range scanResult.Eligible {
		sr := SubscriptionReport{Subscription: sub}

		dep, err := o.Deployer.Deploy(ctx, sub.SubscriptionID, o.Config.Lighthouse.Location, template, parameters)
		sr.Deployment = dep
		if err != nil {
			log.Error().Err(err).Str("subscription", sub.SubscriptionID).Msg("Delegation deployment failed")
			sr.Status = StatusFailed
			sr.Err = err
			report.Subscriptions = append(report.Subscriptions, sr)
			continue
		}

		delegations, err := o.Deployer.Verify(ctx, sub.SubscriptionID, expected)
		if err != nil || len(delegations) == 0 {
			// Valid outcome: the registration may not be queryable yet,
			// or the template registered nothing at this scope.
			log.Info().Str("subscription", sub.SubscriptionID).Msg("No delegation found")
			sr.Status = StatusNoDelegation
			report.Subscriptions = append(report.Subscriptions, sr)
			continue
		}

		sr.Status = StatusDeployed
		sr.Delegations = delegations
		report.Subscriptions = append(report.Subscriptions, sr)
	}

	return report, nil
}
