// Package lighthouse registers cross-tenant management delegations by
// deploying a subscription-scope template and reading the resulting
// registration back for verification.
package lighthouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/arm"
	"github.com/mspkit/delegate/internal/retry"
)

// API is the slice of the resource-manager client this package consumes.
type API interface {
	CreateDeployment(ctx context.Context, subscriptionID, name string, spec arm.DeploymentSpec) (*arm.Deployment, error)
	GetDeployment(ctx context.Context, subscriptionID, name string) (*arm.Deployment, error)
	ListRegistrationDefinitions(ctx context.Context, subscriptionID string) ([]arm.RegistrationDefinition, error)
	ListRegistrationAssignments(ctx context.Context, subscriptionID string) ([]arm.RegistrationAssignment, error)
	GetRoleDefinition(ctx context.Context, subscriptionID, roleDefinitionID string) (*arm.RoleDefinition, error)
}

// Deployer deploys and verifies delegation registrations.
type Deployer struct {
	api    API
	policy retry.Policy
}

// NewDeployer creates a deployer with the given provisioning-poll policy.
func NewDeployer(api API, policy retry.Policy) *Deployer {
	return &Deployer{api: api, policy: policy}
}

// DeploymentName derives the deterministic deployment name for a
// subscription: a short prefix keeps the name under platform length limits
// while redeployments to the same subscription update in place instead of
// accumulating.
func DeploymentName(subscriptionID string) string {
	short := subscriptionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "delegate-onboard-" + short
}

// Deploy submits the delegation template at subscription scope and polls
// the asynchronous provisioning to a terminal state. Failure is fatal for
// this subscription's pipeline; verification is never attempted on a
// failed deployment.
func (d *Deployer) Deploy(ctx context.Context, subscriptionID, location string, template, parameters json.RawMessage) (*arm.Deployment, error) {
	if _, err := uuid.Parse(subscriptionID); err != nil {
		return nil, &apierror.Configuration{Key: subscriptionID, Msg: "subscription id is not a GUID"}
	}

	name := DeploymentName(subscriptionID)
	spec := arm.DeploymentSpec{
		Location: location,
		Properties: arm.DeploymentProperties{
			Mode:       "Incremental",
			Template:   template,
			Parameters: parameters,
		},
	}

	log.Info().
		Str("subscription", subscriptionID).
		Str("deployment", name).
		Str("location", location).
		Msg("Deploying delegation template")

	if _, err := d.api.CreateDeployment(ctx, subscriptionID, name, spec); err != nil {
		return nil, fmt.Errorf("deployment %s failed to submit: %w", name, err)
	}

	dep, err := retry.Do(ctx, d.policy, "deployment "+name, func() (*arm.Deployment, error) {
		dep, err := d.api.GetDeployment(ctx, subscriptionID, name)
		if err != nil {
			return nil, err
		}
		if !dep.Terminal() {
			return nil, &apierror.Transient{
				Operation: "deployment " + name,
				Err:       fmt.Errorf("provisioning state %q", dep.Properties.ProvisioningState),
			}
		}
		return dep, nil
	})
	if err != nil {
		return nil, fmt.Errorf("deployment %s did not reach a terminal state: %w", name, err)
	}

	if !dep.Succeeded() {
		return dep, fmt.Errorf("deployment %s finished in state %s", name, dep.Properties.ProvisioningState)
	}

	log.Info().Str("deployment", name).Str("state", dep.Properties.ProvisioningState).Msg("Deployment succeeded")
	return dep, nil
}
