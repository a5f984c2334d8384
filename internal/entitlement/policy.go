package entitlement

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/graph"
)

// EnsurePolicy finds or creates the auto-assignment policy for the access
// package. The policy collection has no reliable scoped filter, so
// matching is list-all plus client-side display-name comparison. The
// membership rule is platform-defined syntax, validated for presence only
// and passed through verbatim.
func (s *Service) EnsurePolicy(ctx context.Context, accessPackageID, displayName, membershipRule string) (*graph.AssignmentPolicy, bool, error) {
	if membershipRule == "" {
		return nil, false, &apierror.Configuration{Key: displayName, Msg: "membership rule is required"}
	}

	policies, err := s.api.ListAssignmentPolicies(ctx)
	if err != nil {
		return nil, false, err
	}

	for i := range policies {
		p := &policies[i]
		if p.DisplayName != displayName {
			continue
		}
		if p.AccessPackage != nil && p.AccessPackage.ID != accessPackageID {
			continue
		}
		log.Debug().Str("policy", displayName).Str("policy_id", p.ID).Msg("Assignment policy already exists")
		return p, false, nil
	}

	created, err := s.api.CreateAssignmentPolicy(ctx, graph.AssignmentPolicy{
		DisplayName:        displayName,
		Description:        "Automatically assigns matching principals",
		AllowedTargetScope: "specificDirectoryUsers",
		SpecificAllowedTargets: []graph.AttributeRuleTarget{{
			ODataType:      "#microsoft.graph.attributeRuleMembers",
			Description:    displayName,
			MembershipRule: membershipRule,
		}},
		AutomaticRequestSettings: &graph.AutomaticRequestSettings{
			RequestAccessForAllowedTargets: true,
		},
		AccessPackage: &graph.AccessPackageRef{ID: accessPackageID},
	})
	if err != nil {
		return nil, false, err
	}

	log.Info().Str("policy", displayName).Str("policy_id", created.ID).Msg("Created auto-assignment policy")
	return created, true, nil
}
