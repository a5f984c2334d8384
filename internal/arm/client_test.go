package arm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mspkit/delegate/internal/apierror"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.Client())
}

func TestListSubscriptions(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("api-version"))

		json.NewEncoder(w).Encode(map[string]any{
			"value": []Subscription{
				{SubscriptionID: "sub-1", DisplayName: "Production", State: "Enabled"},
				{SubscriptionID: "sub-2", DisplayName: "Retired", State: "Disabled"},
			},
		})
	}))

	subs, err := c.ListSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.True(t, subs[0].Enabled())
	require.False(t, subs[1].Enabled())
}

func TestListRoleAssignmentsFiltersPrincipal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Query().Get("$filter"), "principalId eq 'sp-1'")
		json.NewEncoder(w).Encode(map[string]any{
			"value": []RoleAssignment{{
				Properties: RoleAssignmentProperties{PrincipalID: "sp-1", RoleDefinitionID: "role-guid"},
			}},
		})
	}))

	assignments, err := c.ListRoleAssignments(context.Background(), "sub-1", "sp-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
}

func TestGetRoleDefinitionAcceptsFullID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/8e3af657", r.URL.Path)
		json.NewEncoder(w).Encode(RoleDefinition{Properties: RoleDefinitionProperties{RoleName: "Owner"}})
	}))

	def, err := c.GetRoleDefinition(context.Background(),
		"sub-1", "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/8e3af657")
	require.NoError(t, err)
	require.Equal(t, "Owner", def.Properties.RoleName)
}

func TestCreateDeployment(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/subscriptions/sub-1/providers/Microsoft.Resources/deployments/delegate-onboard-abc", r.URL.Path)

		var spec DeploymentSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		require.Equal(t, "Incremental", spec.Properties.Mode)
		require.Equal(t, "eastus", spec.Location)

		json.NewEncoder(w).Encode(Deployment{
			Name:       "delegate-onboard-abc",
			Properties: DeploymentResult{ProvisioningState: "Accepted"},
		})
	}))

	dep, err := c.CreateDeployment(context.Background(), "sub-1", "delegate-onboard-abc", DeploymentSpec{
		Location:   "eastus",
		Properties: DeploymentProperties{Mode: "Incremental"},
	})
	require.NoError(t, err)
	require.False(t, dep.Terminal())
}

func TestListRegistrationDefinitionsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	}))

	defs, err := c.ListRegistrationDefinitions(context.Background(), "sub-1")
	require.NoError(t, err, "empty delegation list is a valid outcome")
	require.Empty(t, defs)
}

func TestListRegistrationAssignmentsExpands(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("$expandRegistrationDefinition"))
		json.NewEncoder(w).Encode(map[string]any{
			"value": []RegistrationAssignment{{
				Properties: RegistrationAssignmentProperties{
					RegistrationDefinitionID: "def-1",
					RegistrationDefinition: &RegistrationDefinition{
						Properties: RegistrationDefinitionProperties{ManagedByTenantName: "Contoso MSP"},
					},
				},
			}},
		})
	}))

	assignments, err := c.ListRegistrationAssignments(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, "Contoso MSP", assignments[0].Properties.RegistrationDefinition.Properties.ManagedByTenantName)
}

func TestPermissionStatusIsFatal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.ListSubscriptions(context.Background())
	require.True(t, apierror.IsFatal(err))
}

func TestDeploymentTerminalStates(t *testing.T) {
	tests := []struct {
		state     string
		terminal  bool
		succeeded bool
	}{
		{"Succeeded", true, true},
		{"Failed", true, false},
		{"Canceled", true, false},
		{"Running", false, false},
		{"Accepted", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			d := Deployment{Properties: DeploymentResult{ProvisioningState: tt.state}}
			require.Equal(t, tt.terminal, d.Terminal())
			require.Equal(t, tt.succeeded, d.Succeeded())
		})
	}
}
