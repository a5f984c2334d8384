// Package directory implements the find-or-create primitives the
// provisioning pipelines are built from: display-name-keyed entity
// resolution, built-in role activation and idempotent role membership.
package directory

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/graph"
)

// FindOrCreate resolves an entity by exact display-name match, creating it
// when absent. Display names are not platform-unique: more than one match
// picks the entity with the lowest id deterministically and logs the
// ambiguity instead of failing the run. The second return reports whether
// the entity was created by this call.
func FindOrCreate[T any](ctx context.Context, kind, displayName string,
	list func(context.Context) ([]T, error),
	create func(context.Context) (*T, error),
	id func(*T) string,
) (*T, bool, error) {
	matches, err := list(ctx)
	if err != nil {
		return nil, false, err
	}

	if len(matches) > 0 {
		sort.Slice(matches, func(i, j int) bool {
			return id(&matches[i]) < id(&matches[j])
		})
		if len(matches) > 1 {
			log.Warn().
				Str("kind", kind).
				Str("display_name", displayName).
				Int("matches", len(matches)).
				Str("selected_id", id(&matches[0])).
				Msg("Display name is ambiguous, selecting lowest id")
		}
		return &matches[0], false, nil
	}

	created, err := create(ctx)
	if err != nil {
		return nil, false, err
	}

	log.Info().
		Str("kind", kind).
		Str("display_name", displayName).
		Str("id", id(created)).
		Msg("Created directory entity")

	return created, true, nil
}

// GroupsAPI is the slice of the directory client group resolution needs.
type GroupsAPI interface {
	ListGroupsByDisplayName(ctx context.Context, displayName string) ([]graph.Group, error)
	CreateGroup(ctx context.Context, spec graph.GroupSpec) (*graph.Group, error)
}

// Groups resolves security groups by display name.
type Groups struct {
	api GroupsAPI
}

// NewGroups creates a group resolver.
func NewGroups(api GroupsAPI) *Groups {
	return &Groups{api: api}
}

// Ensure returns the group with spec.DisplayName, creating it when absent.
func (g *Groups) Ensure(ctx context.Context, spec graph.GroupSpec) (*graph.Group, bool, error) {
	return FindOrCreate(ctx, "group", spec.DisplayName,
		func(ctx context.Context) ([]graph.Group, error) {
			return g.api.ListGroupsByDisplayName(ctx, spec.DisplayName)
		},
		func(ctx context.Context) (*graph.Group, error) {
			return g.api.CreateGroup(ctx, spec)
		},
		func(group *graph.Group) string { return group.ID },
	)
}
