// Package graph is the client for the directory and entitlement-management
// API. It exposes only the operations the onboarding pipelines consume and
// maps response status codes onto the shared error taxonomy so callers can
// decide between retry, abort and warn-and-continue.
package graph

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
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const entitlementPath = "/identityGovernance/entitlementManagement"

// Client calls the directory and entitlement API with a bearer-token
// transport supplied by the caller.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient creates a client. baseURL may be empty for the public cloud;
// hc must already carry credentials (see identity.HTTPClient).
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

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
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

// classify maps a response status onto the error taxonomy. 2xx is success,
// auth failures are fatal, throttling and server errors are retryable.
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

// escapeFilterValue doubles single quotes per OData filter literal rules.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// GetUserByEmail looks a user up by mail or user principal name. The query
// runs in eventual-consistency mode so recently invited guests become
// visible as the directory propagates. Returns apierror.ErrNotFound when
// no user matches.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	e := escapeFilterValue(email)
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("mail eq '%s' or userPrincipalName eq '%s'", e, e))
	q.Set("$select", "id,displayName,mail,userPrincipalName,userType,employeeId")
	q.Set("$count", "true")

	var list listResponse[User]
	err := c.do(ctx, http.MethodGet, "/users", q, map[string]string{"ConsistencyLevel": "eventual"}, nil, &list)
	if err != nil {
		return nil, err
	}
	if len(list.Value) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, apierror.ErrNotFound)
	}
	return &list.Value[0], nil
}

// ListGroupsByDisplayName returns every group with an exact display name
// match. Display names are not unique; callers own the ambiguity policy.
func (c *Client) ListGroupsByDisplayName(ctx context.Context, displayName string) ([]Group, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("displayName eq '%s'", escapeFilterValue(displayName)))

	var list listResponse[Group]
	if err := c.do(ctx, http.MethodGet, "/groups", q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateGroup creates a security group.
func (c *Client) CreateGroup(ctx context.Context, spec GroupSpec) (*Group, error) {
	var group Group
	if err := c.do(ctx, http.MethodPost, "/groups", nil, nil, spec, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetRoleByDisplayName returns the activated directory role with the given
// name, or apierror.ErrNotFound if the role has not been activated. The
// role collection does not support server-side filtering, so the match is
// client-side.
func (c *Client) GetRoleByDisplayName(ctx context.Context, displayName string) (*DirectoryRole, error) {
	var list listResponse[DirectoryRole]
	if err := c.do(ctx, http.MethodGet, "/directoryRoles", nil, nil, nil, &list); err != nil {
		return nil, err
	}
	for i := range list.Value {
		if list.Value[i].DisplayName == displayName {
			return &list.Value[i], nil
		}
	}
	return nil, fmt.Errorf("directory role %q: %w", displayName, apierror.ErrNotFound)
}

// GetRoleTemplateByDisplayName returns the latent role template with the
// given name, or apierror.ErrNotFound when the platform edition does not
// carry it.
func (c *Client) GetRoleTemplateByDisplayName(ctx context.Context, displayName string) (*RoleTemplate, error) {
	var list listResponse[RoleTemplate]
	if err := c.do(ctx, http.MethodGet, "/directoryRoleTemplates", nil, nil, nil, &list); err != nil {
		return nil, err
	}
	for i := range list.Value {
		if list.Value[i].DisplayName == displayName {
			return &list.Value[i], nil
		}
	}
	return nil, fmt.Errorf("role template %q: %w", displayName, apierror.ErrNotFound)
}

// ActivateRole activates a built-in role from its template. Activating an
// already-active role is accepted by the platform, callers still guard
// with a lookup first.
func (c *Client) ActivateRole(ctx context.Context, templateID string) (*DirectoryRole, error) {
	body := map[string]string{"roleTemplateId": templateID}
	var role DirectoryRole
	if err := c.do(ctx, http.MethodPost, "/directoryRoles", nil, nil, body, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoleMembers returns the current members of an activated role.
func (c *Client) ListRoleMembers(ctx context.Context, roleID string) ([]DirectoryObject, error) {
	var list listResponse[DirectoryObject]
	path := fmt.Sprintf("/directoryRoles/%s/members", url.PathEscape(roleID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// AddRoleMember adds a principal to an activated role by reference. The
// write is not idempotent platform-side; callers must check membership
// first.
func (c *Client) AddRoleMember(ctx context.Context, roleID, principalID string) error {
	body := map[string]string{
		"@odata.id": fmt.Sprintf("%s/directoryObjects/%s", c.base, principalID),
	}
	path := fmt.Sprintf("/directoryRoles/%s/members/$ref", url.PathEscape(roleID))
	return c.do(ctx, http.MethodPost, path, nil, nil, body, nil)
}

// InviteGuest issues a guest invitation and returns the pending user it
// created.
func (c *Client) InviteGuest(ctx context.Context, spec InvitationSpec) (*User, error) {
	var inv Invitation
	if err := c.do(ctx, http.MethodPost, "/invitations", nil, nil, spec, &inv); err != nil {
		return nil, err
	}
	if inv.InvitedUser == nil || inv.InvitedUser.ID == "" {
		return nil, fmt.Errorf("invitation for %s returned no invited user", spec.InvitedUserEmailAddress)
	}
	return inv.InvitedUser, nil
}

// UpdateEmployeeID writes the correlating tag onto a user.
func (c *Client) UpdateEmployeeID(ctx context.Context, userID, employeeID string) error {
	body := map[string]string{"employeeId": employeeID}
	path := fmt.Sprintf("/users/%s", url.PathEscape(userID))
	return c.do(ctx, http.MethodPatch, path, nil, nil, body, nil)
}

// ListCatalogs returns catalogs with an exact display name match.
func (c *Client) ListCatalogs(ctx context.Context, displayName string) ([]Catalog, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("displayName eq '%s'", escapeFilterValue(displayName)))

	var list listResponse[Catalog]
	if err := c.do(ctx, http.MethodGet, entitlementPath+"/catalogs", q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateCatalog creates an entitlement catalog.
func (c *Client) CreateCatalog(ctx context.Context, spec Catalog) (*Catalog, error) {
	var catalog Catalog
	if err := c.do(ctx, http.MethodPost, entitlementPath+"/catalogs", nil, nil, spec, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// ListAccessPackages returns access packages with an exact display name
// match, with their owning catalog expanded.
func (c *Client) ListAccessPackages(ctx context.Context, displayName string) ([]AccessPackage, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("displayName eq '%s'", escapeFilterValue(displayName)))
	q.Set("$expand", "catalog")

	var list listResponse[AccessPackage]
	if err := c.do(ctx, http.MethodGet, entitlementPath+"/accessPackages", q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateAccessPackage creates an access package inside the catalog named
// by spec.Catalog.
func (c *Client) CreateAccessPackage(ctx context.Context, spec AccessPackage) (*AccessPackage, error) {
	var pkg AccessPackage
	if err := c.do(ctx, http.MethodPost, entitlementPath+"/accessPackages", nil, nil, spec, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListCatalogResources returns the catalog resources matching an origin id
// and origin system, with scopes expanded. The default fetch omits scopes
// and downstream role-scope binding needs them.
func (c *Client) ListCatalogResources(ctx context.Context, catalogID, originID, originSystem string) ([]Resource, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("originId eq '%s' and originSystem eq '%s'",
		escapeFilterValue(originID), escapeFilterValue(originSystem)))
	q.Set("$expand", "scopes")

	path := fmt.Sprintf("%s/catalogs/%s/resources", entitlementPath, url.PathEscape(catalogID))
	var list listResponse[Resource]
	if err := c.do(ctx, http.MethodGet, path, q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// SubmitResourceRequest registers a resource into a catalog. Processing is
// asynchronous; callers verify by re-querying the catalog resources.
func (c *Client) SubmitResourceRequest(ctx context.Context, spec ResourceRequestSpec) error {
	return c.do(ctx, http.MethodPost, entitlementPath+"/resourceRequests", nil, nil, spec, nil)
}

// ListResourceRoles returns the roles a catalog resource exposes, with the
// resource expanded so bindings can echo its identifiers.
func (c *Client) ListResourceRoles(ctx context.Context, catalogID, resourceID, originSystem string) ([]ResourceRole, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("(originSystem eq '%s' and resource/id eq '%s')",
		escapeFilterValue(originSystem), escapeFilterValue(resourceID)))
	q.Set("$expand", "resource")

	path := fmt.Sprintf("%s/catalogs/%s/resourceRoles", entitlementPath, url.PathEscape(catalogID))
	var list listResponse[ResourceRole]
	if err := c.do(ctx, http.MethodGet, path, q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// ListRoleScopeBindings returns the role-scope bindings an access package
// already carries, with role and scope expanded so callers can match on
// origin identifiers.
func (c *Client) ListRoleScopeBindings(ctx context.Context, accessPackageID string) ([]RoleScopeBinding, error) {
	q := url.Values{}
	q.Set("$expand", "role,scope")

	path := fmt.Sprintf("%s/accessPackages/%s/resourceRoleScopes", entitlementPath, url.PathEscape(accessPackageID))
	var list listResponse[RoleScopeBinding]
	if err := c.do(ctx, http.MethodGet, path, q, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateRoleScopeBinding grants an access package the effect of the given
// role on the given scope.
func (c *Client) CreateRoleScopeBinding(ctx context.Context, accessPackageID string, binding RoleScopeBinding) (*RoleScopeBinding, error) {
	path := fmt.Sprintf("%s/accessPackages/%s/resourceRoleScopes", entitlementPath, url.PathEscape(accessPackageID))
	var created RoleScopeBinding
	if err := c.do(ctx, http.MethodPost, path, nil, nil, binding, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListAssignmentPolicies returns every assignment policy. The policy
// collection has no reliable scoped filter, so callers match client-side.
func (c *Client) ListAssignmentPolicies(ctx context.Context) ([]AssignmentPolicy, error) {
	var list listResponse[AssignmentPolicy]
	if err := c.do(ctx, http.MethodGet, entitlementPath+"/assignmentPolicies", nil, nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateAssignmentPolicy creates an auto-assignment policy.
func (c *Client) CreateAssignmentPolicy(ctx context.Context, spec AssignmentPolicy) (*AssignmentPolicy, error) {
	var policy AssignmentPolicy
	if err := c.do(ctx, http.MethodPost, entitlementPath+"/assignmentPolicies", nil, nil, spec, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}
