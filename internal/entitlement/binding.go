package entitlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/graph"
)

// DefaultResourceRole is the group role an access package grants by
// default.
const DefaultResourceRole = "Member"

// LinkRoleToPackage binds a role-on-resource to the access package. The
// nested role and scope identifiers are copied verbatim from the resolved
// resource: the platform validates referential consistency against them
// and rejects re-derived values.
//
// A missing role or an unresolved resource is fatal for this stage only;
// callers log and continue, since an operator can complete the binding
// manually. The second return reports whether a new binding was created.
func (s *Service) LinkRoleToPackage(ctx context.Context, catalogID, accessPackageID string, resource *graph.Resource, roleName string) (*graph.RoleScopeBinding, bool, error) {
	if resource == nil || resource.ID == "" {
		return nil, false, fmt.Errorf("cannot bind role %q: catalog resource is not resolved", roleName)
	}
	if len(resource.Scopes) == 0 {
		return nil, false, fmt.Errorf("cannot bind role %q: resource %s exposes no scopes", roleName, resource.ID)
	}

	roles, err := s.api.ListResourceRoles(ctx, catalogID, resource.ID, graph.OriginSystemGroup)
	if err != nil {
		return nil, false, err
	}

	var role *graph.ResourceRole
	for i := range roles {
		if roles[i].DisplayName == roleName {
			role = &roles[i]
			break
		}
	}
	if role == nil {
		return nil, false, fmt.Errorf("resource %s exposes no role named %q", resource.ID, roleName)
	}

	scope := resource.Scopes[0]

	// Binding creation is not idempotent platform-side; re-submitting an
	// existing pair accumulates duplicates, so match on origin identifiers
	// first.
	existing, err := s.api.ListRoleScopeBindings(ctx, accessPackageID)
	if err != nil {
		return nil, false, err
	}
	for i := range existing {
		b := &existing[i]
		if b.Role == nil || b.Scope == nil {
			continue
		}
		if b.Role.OriginID == role.OriginID && b.Scope.OriginID == scope.OriginID {
			log.Debug().
				Str("access_package_id", accessPackageID).
				Str("role", roleName).
				Msg("Role-scope binding already exists")
			return b, false, nil
		}
	}
	binding := graph.RoleScopeBinding{
		Role: &graph.ResourceRole{
			ID:           role.ID,
			DisplayName:  role.DisplayName,
			OriginID:     role.OriginID,
			OriginSystem: role.OriginSystem,
			Resource: &graph.Resource{
				ID:           resource.ID,
				OriginID:     resource.OriginID,
				OriginSystem: resource.OriginSystem,
			},
		},
		Scope: &graph.Scope{
			ID:           scope.ID,
			OriginID:     scope.OriginID,
			OriginSystem: scope.OriginSystem,
		},
	}

	created, err := s.api.CreateRoleScopeBinding(ctx, accessPackageID, binding)
	if err != nil {
		// The payload carries no secrets; log it so a failed submission
		// can be replayed by hand.
		payload, _ := json.Marshal(binding)
		log.Error().
			Err(err).
			Str("access_package_id", accessPackageID).
			RawJSON("payload", payload).
			Msg("Role-scope binding submission failed")
		return nil, false, err
	}

	log.Info().
		Str("access_package_id", accessPackageID).
		Str("role", role.DisplayName).
		Str("resource_id", resource.ID).
		Msg("Bound resource role to access package")

	return created, true, nil
}
