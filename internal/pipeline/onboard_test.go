package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/arm"
	"github.com/mspkit/delegate/internal/config"
	"github.com/mspkit/delegate/internal/lighthouse"
	"github.com/mspkit/delegate/internal/retry"
	"github.com/mspkit/delegate/internal/scan"
)

const (
	subA = "11111111-0000-0000-0000-000000000000"
	subB = "22222222-0000-0000-0000-000000000000"
)

// fakeARMPlane backs both the eligibility scan and the delegation
// deployer with one in-memory control plane.
type fakeARMPlane struct {
	subs        []arm.Subscription
	assignments map[string][]arm.RoleAssignment
	roleNames   map[string]string
	definitions map[string][]arm.RegistrationDefinition
	deployments map[string]*arm.Deployment
	failDeploy  map[string]bool
}

func newFakeARMPlane() *fakeARMPlane {
	return &fakeARMPlane{
		assignments: map[string][]arm.RoleAssignment{},
		roleNames:   map[string]string{"owner-guid": "Owner", "reader-guid": "Reader"},
		definitions: map[string][]arm.RegistrationDefinition{},
		deployments: map[string]*arm.Deployment{},
		failDeploy:  map[string]bool{},
	}
}

func (f *fakeARMPlane) addEligible(subID, name string) {
	f.subs = append(f.subs, arm.Subscription{SubscriptionID: subID, DisplayName: name, State: "Enabled"})
	f.assignments[subID] = []arm.RoleAssignment{{
		Properties: arm.RoleAssignmentProperties{PrincipalID: "sp-1", RoleDefinitionID: "owner-guid"},
	}}
}

func (f *fakeARMPlane) registerDelegation(subID string) {
	f.definitions[subID] = []arm.RegistrationDefinition{{
		ID: "def-" + subID,
		Properties: arm.RegistrationDefinitionProperties{
			RegistrationName:    "Managed services onboarding",
			ManagedByTenantName: "Contoso MSP",
			Authorizations: []arm.Authorization{{
				PrincipalID:            "group-1",
				PrincipalIDDisplayName: "Managed Services Operators",
				RoleDefinitionID:       "reader-guid",
			}},
		},
	}}
}

func (f *fakeARMPlane) ListSubscriptions(ctx context.Context) ([]arm.Subscription, error) {
	return f.subs, nil
}

func (f *fakeARMPlane) ListRoleAssignments(ctx context.Context, subscriptionID, principalID string) ([]arm.RoleAssignment, error) {
	return f.assignments[subscriptionID], nil
}

func (f *fakeARMPlane) GetRoleDefinition(ctx context.Context, subscriptionID, roleDefinitionID string) (*arm.RoleDefinition, error) {
	name, ok := f.roleNames[roleDefinitionID]
	if !ok {
		return nil, fmt.Errorf("role definition %s: %w", roleDefinitionID, apierror.ErrNotFound)
	}
	return &arm.RoleDefinition{Properties: arm.RoleDefinitionProperties{RoleName: name}}, nil
}

func (f *fakeARMPlane) CreateDeployment(ctx context.Context, subscriptionID, name string, spec arm.DeploymentSpec) (*arm.Deployment, error) {
	if f.failDeploy[subscriptionID] {
		return nil, &apierror.Permission{Operation: "deploy " + name, Err: fmt.Errorf("authorization failed")}
	}
	dep := &arm.Deployment{
		Name:       name,
		Location:   spec.Location,
		Properties: arm.DeploymentResult{ProvisioningState: "Succeeded"},
	}
	f.deployments[subscriptionID] = dep
	return dep, nil
}

func (f *fakeARMPlane) GetDeployment(ctx context.Context, subscriptionID, name string) (*arm.Deployment, error) {
	dep, ok := f.deployments[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("deployment %s: %w", name, apierror.ErrNotFound)
	}
	return dep, nil
}

func (f *fakeARMPlane) ListRegistrationDefinitions(ctx context.Context, subscriptionID string) ([]arm.RegistrationDefinition, error) {
	return f.definitions[subscriptionID], nil
}

func (f *fakeARMPlane) ListRegistrationAssignments(ctx context.Context, subscriptionID string) ([]arm.RegistrationAssignment, error) {
	return nil, nil
}

func newOnboardPipeline(f *fakeARMPlane) *Onboard {
	cfg := config.Defaults
	cfg.Lighthouse = config.Lighthouse{
		Location:  "eastus",
		GroupName: "Managed Services Operators",
		RoleName:  "Reader",
	}
	return &Onboard{
		Scanner:  scan.New(f),
		Deployer: lighthouse.NewDeployer(f, retry.Policy{Attempts: 3, Delay: time.Millisecond}),
		Config:   &cfg,
	}
}

func TestOnboardProcessesEligibleSubscriptionsOnly(t *testing.T) {
	f := newFakeARMPlane()
	f.addEligible(subA, "prod")
	f.subs = append(f.subs, arm.Subscription{SubscriptionID: subB, DisplayName: "sandbox", State: "Enabled"})
	f.registerDelegation(subA)

	report, err := newOnboardPipeline(f).Run(context.Background(), "sp-1", json.RawMessage(`{}`), nil)
	require.NoError(t, err)

	require.Len(t, report.Scan.Eligible, 1)
	require.Len(t, report.Scan.Ineligible, 1)

	require.Len(t, report.Subscriptions, 1, "only eligible subscriptions get the deploy pass")
	sr := report.Subscriptions[0]
	require.Equal(t, StatusDeployed, sr.Status)
	require.Len(t, sr.Delegations, 1)
	require.Contains(t, sr.Delegations[0].Compliance, "OK")
	require.Nil(t, f.deployments[subB])
}

func TestOnboardDeployFailureDoesNotStopOthers(t *testing.T) {
	f := newFakeARMPlane()
	f.addEligible(subA, "prod")
	f.addEligible(subB, "staging")
	f.registerDelegation(subB)
	f.failDeploy[subA] = true

	report, err := newOnboardPipeline(f).Run(context.Background(), "sp-1", json.RawMessage(`{}`), nil)
	require.NoError(t, err, "a per-subscription deployment failure never aborts the run")

	require.Len(t, report.Subscriptions, 2)

	byID := map[string]SubscriptionReport{}
	for _, sr := range report.Subscriptions {
		byID[sr.Subscription.SubscriptionID] = sr
	}

	require.Equal(t, StatusFailed, byID[subA].Status)
	require.Error(t, byID[subA].Err)
	require.Empty(t, byID[subA].Delegations, "verification is never attempted on a failed deployment")

	require.Equal(t, StatusDeployed, byID[subB].Status)
}

func TestOnboardNoDelegationIsInformational(t *testing.T) {
	f := newFakeARMPlane()
	f.addEligible(subA, "prod")
	// Deployment succeeds but registers nothing queryable at this scope.

	report, err := newOnboardPipeline(f).Run(context.Background(), "sp-1", json.RawMessage(`{}`), nil)
	require.NoError(t, err)

	require.Len(t, report.Subscriptions, 1)
	require.Equal(t, StatusNoDelegation, report.Subscriptions[0].Status)
	require.Nil(t, report.Subscriptions[0].Err)
}
