// Package arm is the client for the resource-manager API: subscription
// enumeration, RBAC reads, subscription-scope template deployments and
// delegation (managed-services) reads.
package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mspkit/delegate/internal/apierror"
)

// DefaultBaseURL is the public cloud endpoint.
const DefaultBaseURL = "https://management.azure.com"

const (
	apiVersionSubscriptions   = "2022-12-01"
	apiVersionAuthorization   = "2022-04-01"
	apiVersionDeployments     = "2021-04-01"
	apiVersionManagedServices = "2022-10-01"
)

// Client calls the resource-manager API with a bearer-token transport
// supplied by the caller.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient creates a client. baseURL may be empty for the public cloud.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

type listResponse[T any] struct {
	Value []T `json:"value"`
}

func (c *Client) do(ctx context.Context, method, path, apiVersion string, query url.Values, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)

	req, err := http.NewRequestWithContext(ctx, method, c.base+path+"?"+query.Encode(), reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &apierror.Transient{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierror.Transient{Operation: op, Err: err}
	}

	if err := classify(op, resp.StatusCode, data); err != nil {
		return err
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}

	return nil
}

func classify(op string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &apierror.Permission{Operation: op, Err: fmt.Errorf("status %d: %s", status, truncate(body))}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, apierror.ErrNotFound)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return &apierror.Transient{Operation: op, Err: fmt.Errorf("status %d: %s", status, truncate(body))}
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, status, truncate(body))
	}
}

func truncate(body []byte) string {
	const max = 512
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// ListSubscriptions enumerates every subscription visible to the acting
// credential.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var list listResponse[Subscription]
	if err := c.do(ctx, http.MethodGet, "/subscriptions", apiVersionSubscriptions, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// ListRoleAssignments returns the role assignments for one principal at
// subscription scope, including inherited assignments.
func (c *Client) ListRoleAssignments(ctx context.Context, subscriptionID, principalID string) ([]RoleAssignment, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("principalId eq '%s'", principalID))

	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleAssignments", url.PathEscape(subscriptionID))
	var list listResponse[RoleAssignment]
	if err := c.do(ctx, http.MethodGet, path, apiVersionAuthorization, q, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// GetRoleDefinition resolves a role definition id (the full ARM id or the
// bare GUID) to its definition at subscription scope.
func (c *Client) GetRoleDefinition(ctx context.Context, subscriptionID, roleDefinitionID string) (*RoleDefinition, error) {
	// Accept either form; the bare GUID is what delegation authorizations
	// carry.
	guid := roleDefinitionID
	if idx := strings.LastIndex(guid, "/"); idx >= 0 {
		guid = guid[idx+1:]
	}

	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s",
		url.PathEscape(subscriptionID), url.PathEscape(guid))
	var def RoleDefinition
	if err := c.do(ctx, http.MethodGet, path, apiVersionAuthorization, nil, nil, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// CreateDeployment submits a subscription-scope template deployment.
// Deploying the same name again updates in place, which is what makes
// redeployments idempotent-by-name.
func (c *Client) CreateDeployment(ctx context.Context, subscriptionID, name string, spec DeploymentSpec) (*Deployment, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Resources/deployments/%s",
		url.PathEscape(subscriptionID), url.PathEscape(name))
	var dep Deployment
	if err := c.do(ctx, http.MethodPut, path, apiVersionDeployments, nil, spec, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// GetDeployment reads back a deployment's state; used to poll the
// asynchronous provisioning to a terminal state.
func (c *Client) GetDeployment(ctx context.Context, subscriptionID, name string) (*Deployment, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Resources/deployments/%s",
		url.PathEscape(subscriptionID), url.PathEscape(name))
	var dep Deployment
	if err := c.do(ctx, http.MethodGet, path, apiVersionDeployments, nil, nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// ListRegistrationDefinitions returns the delegations registered at a
// subscription. An empty list is a valid outcome, not an error.
func (c *Client) ListRegistrationDefinitions(ctx context.Context, subscriptionID string) ([]RegistrationDefinition, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.ManagedServices/registrationDefinitions",
		url.PathEscape(subscriptionID))
	var list listResponse[RegistrationDefinition]
	if err := c.do(ctx, http.MethodGet, path, apiVersionManagedServices, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// ListRegistrationAssignments returns the delegation assignments at a
// subscription with their definitions expanded. Used as the fallback
// source for the managing tenant name when the definition list omits it.
func (c *Client) ListRegistrationAssignments(ctx context.Context, subscriptionID string) ([]RegistrationAssignment, error) {
	q := url.Values{}
	q.Set("$expandRegistrationDefinition", "true")

	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.ManagedServices/registrationAssignments",
		url.PathEscape(subscriptionID))
	var list listResponse[RegistrationAssignment]
	if err := c.do(ctx, http.MethodGet, path, apiVersionManagedServices, q, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}
