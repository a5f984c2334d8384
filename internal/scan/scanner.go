// Package scan classifies subscriptions by whether the acting principal
// holds the elevated role the delegation pipeline requires. Read-only; the
// continue-or-abort decision belongs to the caller.
package scan

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/arm"
)

// RequiredRoles is the role set that makes a subscription actionable.
var RequiredRoles = map[string]bool{"Owner": true}

// API is the slice of the resource-manager client the scanner needs.
type API interface {
	ListSubscriptions(ctx context.Context) ([]arm.Subscription, error)
	ListRoleAssignments(ctx context.Context, subscriptionID, principalID string) ([]arm.RoleAssignment, error)
	GetRoleDefinition(ctx context.Context, subscriptionID, roleDefinitionID string) (*arm.RoleDefinition, error)
}

// Result partitions the enumerated subscriptions. The three sets are
// disjoint and together cover everything the credential can see.
type Result struct {
	Eligible   []arm.Subscription
	Ineligible []arm.Subscription
	Disabled   []arm.Subscription
}

// Total returns the number of enumerated subscriptions.
func (r Result) Total() int {
	return len(r.Eligible) + len(r.Ineligible) + len(r.Disabled)
}

// Scanner enumerates subscriptions and tests role eligibility.
type Scanner struct {
	api API
}

// New creates a scanner.
func New(api API) *Scanner {
	return &Scanner{api: api}
}

// Run classifies every visible subscription for the given principal.
// Disabled subscriptions are excluded from the role test entirely; the
// test is meaningless when the subscription cannot be acted upon.
func (s *Scanner) Run(ctx context.Context, principalID string) (*Result, error) {
	subs, err := s.api.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	// Role definition GUIDs repeat across subscriptions; resolve each once.
	roleNames := map[string]string{}

	for _, sub := range subs {
		if !sub.Enabled() {
			log.Debug().Str("subscription", sub.SubscriptionID).Str("state", sub.State).Msg("Subscription disabled, skipping role test")
			result.Disabled = append(result.Disabled, sub)
			continue
		}

		ok, err := s.hasRequiredRole(ctx, sub.SubscriptionID, principalID, roleNames)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Eligible = append(result.Eligible, sub)
		} else {
			log.Info().Str("subscription", sub.SubscriptionID).Str("name", sub.DisplayName).Msg("Acting principal lacks required role")
			result.Ineligible = append(result.Ineligible, sub)
		}
	}

	return result, nil
}

func (s *Scanner) hasRequiredRole(ctx context.Context, subscriptionID, principalID string, roleNames map[string]string) (bool, error) {
	assignments, err := s.api.ListRoleAssignments(ctx, subscriptionID, principalID)
	if err != nil {
		return false, err
	}

	for _, a := range assignments {
		name, cached := roleNames[a.Properties.RoleDefinitionID]
		if !cached {
			def, err := s.api.GetRoleDefinition(ctx, subscriptionID, a.Properties.RoleDefinitionID)
			if err != nil {
				return false, err
			}
			name = def.Properties.RoleName
			roleNames[a.Properties.RoleDefinitionID] = name
		}
		if RequiredRoles[name] {
			return true, nil
		}
	}

	return false, nil
}
