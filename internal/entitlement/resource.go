package entitlement

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/retry"
)

// EnsureRegistered attaches a directory group as a catalog resource and
// returns it with scopes populated. When the group is already registered
// this is a read. Registration requests are processed asynchronously
// platform-side, so after submitting, the resource is re-queried with the
// propagation-wait policy; if it never appears, a verification error is
// returned and the caller decides whether downstream stages can proceed.
func (s *Service) EnsureRegistered(ctx context.Context, catalogID string, group *graph.Group) (*graph.Resource, error) {
	existing, err := s.findResource(ctx, catalogID, group.ID)
	if err == nil {
		log.Debug().Str("catalog_id", catalogID).Str("group_id", group.ID).Msg("Group already registered in catalog")
		return existing, nil
	}
	if !errors.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	req := graph.ResourceRequestSpec{
		RequestType: "adminAdd",
		Catalog:     &graph.CatalogRef{ID: catalogID},
		Resource: &graph.Resource{
			OriginID:     group.ID,
			OriginSystem: graph.OriginSystemGroup,
		},
	}
	if err := s.api.SubmitResourceRequest(ctx, req); err != nil {
		return nil, err
	}

	log.Info().Str("catalog_id", catalogID).Str("group_id", group.ID).Msg("Submitted catalog resource registration")

	resource, err := retry.Do(ctx, s.policy, "resource registration", func() (*graph.Resource, error) {
		r, err := s.findResource(ctx, catalogID, group.ID)
		if errors.Is(err, apierror.ErrNotFound) {
			return nil, &apierror.Transient{Operation: "find catalog resource", Err: err}
		}
		return r, err
	})
	if err != nil {
		// Only running out of propagation budget is a verification
		// mismatch; a fatal error from the re-query keeps its class so the
		// pipeline aborts on it.
		if apierror.IsTransient(err) {
			return nil, &apierror.Verification{Stage: "resource registration", Key: group.DisplayName}
		}
		return nil, err
	}

	return resource, nil
}

// findResource queries the catalog for the group's resource with scopes
// expanded; the default fetch omits scopes and role-scope binding needs
// scopes[0].
func (s *Service) findResource(ctx context.Context, catalogID, groupID string) (*graph.Resource, error) {
	resources, err := s.api.ListCatalogResources(ctx, catalogID, groupID, graph.OriginSystemGroup)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, apierror.ErrNotFound
	}
	return &resources[0], nil
}
