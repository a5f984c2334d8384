package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/retry"
)

// RolesAPI is the slice of the directory client role management needs.
type RolesAPI interface {
	GetRoleByDisplayName(ctx context.Context, displayName string) (*graph.DirectoryRole, error)
	GetRoleTemplateByDisplayName(ctx context.Context, displayName string) (*graph.RoleTemplate, error)
	ActivateRole(ctx context.Context, templateID string) (*graph.DirectoryRole, error)
	ListRoleMembers(ctx context.Context, roleID string) ([]graph.DirectoryObject, error)
	AddRoleMember(ctx context.Context, roleID, principalID string) error
}

// Roles manages built-in directory role activation and membership.
type Roles struct {
	api    RolesAPI
	policy retry.Policy
}

// NewRoles creates a role manager with the given propagation-wait policy.
func NewRoles(api RolesAPI, policy retry.Policy) *Roles {
	return &Roles{api: api, policy: policy}
}

// CheckAvailable verifies the role is already active or its template
// exists, without mutating anything. Pipelines run this as a precondition
// so a misconfigured role name aborts before any object is created.
func (r *Roles) CheckAvailable(ctx context.Context, displayName string) error {
	_, err := r.api.GetRoleByDisplayName(ctx, displayName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apierror.ErrNotFound) {
		return err
	}

	_, err = r.api.GetRoleTemplateByDisplayName(ctx, displayName)
	if errors.Is(err, apierror.ErrNotFound) {
		return &apierror.Configuration{Key: displayName, Msg: "directory role template not found"}
	}
	return err
}

// EnsureActive returns the activated directory role with the given display
// name, activating it from its template when needed. Activation is
// asynchronous in the directory backend, so after activating the role is
// polled until it becomes queryable. A missing template is a configuration
// error: the role name does not exist in this platform edition.
func (r *Roles) EnsureActive(ctx context.Context, displayName string) (*graph.DirectoryRole, error) {
	role, err := r.api.GetRoleByDisplayName(ctx, displayName)
	if err == nil {
		log.Debug().Str("role", displayName).Str("role_id", role.ID).Msg("Role already active")
		return role, nil
	}
	if !errors.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	template, err := r.api.GetRoleTemplateByDisplayName(ctx, displayName)
	if err != nil {
		if errors.Is(err, apierror.ErrNotFound) {
			return nil, &apierror.Configuration{Key: displayName, Msg: "directory role template not found"}
		}
		return nil, err
	}

	activated, err := r.api.ActivateRole(ctx, template.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate role %q: %w", displayName, err)
	}

	log.Info().Str("role", displayName).Str("template_id", template.ID).Msg("Activated directory role")

	// The newly activated role is not guaranteed to be immediately
	// visible; wait for replication before handing it downstream.
	role, err = retry.Do(ctx, r.policy, "role activation propagation", func() (*graph.DirectoryRole, error) {
		role, err := r.api.GetRoleByDisplayName(ctx, displayName)
		if errors.Is(err, apierror.ErrNotFound) {
			return nil, &apierror.Transient{Operation: "get role " + displayName, Err: err}
		}
		return role, err
	})
	if err != nil {
		if activated.ID != "" {
			log.Warn().Str("role", displayName).Msg("Activated role not yet queryable, proceeding with activation response")
			return activated, nil
		}
		return nil, &apierror.Verification{Stage: "role activation", Key: displayName}
	}

	return role, nil
}

// EnsureAssigned adds the principal to the role unless it is already a
// member, and reports whether a new assignment was made. The membership
// check must precede the write: the platform add is not idempotent and
// errors on duplicates.
func (r *Roles) EnsureAssigned(ctx context.Context, roleID, principalID string) (bool, error) {
	members, err := r.api.ListRoleMembers(ctx, roleID)
	if err != nil {
		return false, err
	}

	for _, m := range members {
		if m.ID == principalID {
			log.Debug().Str("role_id", roleID).Str("principal_id", principalID).Msg("Principal already assigned to role")
			return false, nil
		}
	}

	if err := r.api.AddRoleMember(ctx, roleID, principalID); err != nil {
		return false, fmt.Errorf("failed to add member to role %s: %w", roleID, err)
	}

	log.Info().Str("role_id", roleID).Str("principal_id", principalID).Msg("Assigned principal to role")
	return true, nil
}
