// Package entitlement provisions the access-package side of onboarding:
// catalog and package containers, group resource registration, role-scope
// bindings and the auto-assignment policy.
package entitlement

import (
	"context"

	"github.com/mspkit/delegate/internal/directory"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/retry"
)

// API is the slice of the entitlement-management client this package
// consumes.
type API interface {
	ListCatalogs(ctx context.Context, displayName string) ([]graph.Catalog, error)
	CreateCatalog(ctx context.Context, spec graph.Catalog) (*graph.Catalog, error)
	ListAccessPackages(ctx context.Context, displayName string) ([]graph.AccessPackage, error)
	CreateAccessPackage(ctx context.Context, spec graph.AccessPackage) (*graph.AccessPackage, error)
	ListCatalogResources(ctx context.Context, catalogID, originID, originSystem string) ([]graph.Resource, error)
	SubmitResourceRequest(ctx context.Context, spec graph.ResourceRequestSpec) error
	ListResourceRoles(ctx context.Context, catalogID, resourceID, originSystem string) ([]graph.ResourceRole, error)
	ListRoleScopeBindings(ctx context.Context, accessPackageID string) ([]graph.RoleScopeBinding, error)
	CreateRoleScopeBinding(ctx context.Context, accessPackageID string, binding graph.RoleScopeBinding) (*graph.RoleScopeBinding, error)
	ListAssignmentPolicies(ctx context.Context) ([]graph.AssignmentPolicy, error)
	CreateAssignmentPolicy(ctx context.Context, spec graph.AssignmentPolicy) (*graph.AssignmentPolicy, error)
}

// Service provisions entitlement-management objects idempotently.
type Service struct {
	api    API
	policy retry.Policy
}

// NewService creates an entitlement service with the given
// propagation-wait policy.
func NewService(api API, policy retry.Policy) *Service {
	return &Service{api: api, policy: policy}
}

// EnsureCatalog returns the catalog with the given display name, creating
// it when absent.
func (s *Service) EnsureCatalog(ctx context.Context, displayName, description string) (*graph.Catalog, bool, error) {
	return directory.FindOrCreate(ctx, "catalog", displayName,
		func(ctx context.Context) ([]graph.Catalog, error) {
			return s.api.ListCatalogs(ctx, displayName)
		},
		func(ctx context.Context) (*graph.Catalog, error) {
			return s.api.CreateCatalog(ctx, graph.Catalog{
				DisplayName: displayName,
				Description: description,
				State:       "published",
			})
		},
		func(c *graph.Catalog) string { return c.ID },
	)
}

// EnsurePackage returns the access package with the given display name
// inside the catalog, creating it when absent. The catalog id is a
// structural prerequisite: a package cannot be created before its catalog
// resolves.
func (s *Service) EnsurePackage(ctx context.Context, catalogID, displayName, description string) (*graph.AccessPackage, bool, error) {
	return directory.FindOrCreate(ctx, "access package", displayName,
		func(ctx context.Context) ([]graph.AccessPackage, error) {
			packages, err := s.api.ListAccessPackages(ctx, displayName)
			if err != nil {
				return nil, err
			}
			// Same display name may exist in another catalog; only ours
			// count as matches.
			matched := packages[:0]
			for _, p := range packages {
				if p.Catalog != nil && p.Catalog.ID == catalogID {
					matched = append(matched, p)
				}
			}
			return matched, nil
		},
		func(ctx context.Context) (*graph.AccessPackage, error) {
			return s.api.CreateAccessPackage(ctx, graph.AccessPackage{
				DisplayName: displayName,
				Description: description,
				Catalog:     &graph.CatalogRef{ID: catalogID},
			})
		},
		func(p *graph.AccessPackage) string { return p.ID },
	)
}
