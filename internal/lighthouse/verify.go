package lighthouse

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// UnknownRoleName labels authorizations whose role id cannot be resolved
// to a definition; unresolvable roles never fail verification.
const UnknownRoleName = "<unknown>"

// Expectation is the group/role pair compliance is checked against.
type Expectation struct {
	GroupName string
	RoleName  string
}

// AuthorizationReport is one delegation authorization resolved to
// human-readable names.
type AuthorizationReport struct {
	PrincipalID   string
	PrincipalName string
	RoleID        string
	RoleName      string
}

// Delegation is the verification view of one registered delegation.
type Delegation struct {
	SubscriptionID      string
	Offer               string
	ManagedByTenantID   string
	ManagedByTenantName string
	Authorizations      []AuthorizationReport
	Compliance          string
}

// Verify reads back the delegations registered at a subscription and
// cross-references each against the expected group/role pair. An empty
// result is a valid, reportable outcome; query failures are propagated so
// the caller can report "no delegation found" rather than abort.
func (d *Deployer) Verify(ctx context.Context, subscriptionID string, expected Expectation) ([]Delegation, error) {
	defs, err := d.api.ListRegistrationDefinitions(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	roleNames := map[string]string{}
	var delegations []Delegation

	for _, def := range defs {
		del := Delegation{
			SubscriptionID:      subscriptionID,
			Offer:               def.Properties.RegistrationName,
			ManagedByTenantID:   def.Properties.ManagedByTenantID,
			ManagedByTenantName: def.Properties.ManagedByTenantName,
		}
		if del.Offer == "" {
			del.Offer = def.Properties.Description
		}
		if del.ManagedByTenantName == "" {
			del.ManagedByTenantName = d.tenantNameFromAssignments(ctx, subscriptionID, def.ID)
		}

		matched := false
		for _, auth := range def.Properties.Authorizations {
			roleName, cached := roleNames[auth.RoleDefinitionID]
			if !cached {
				roleName = d.resolveRoleName(ctx, subscriptionID, auth.RoleDefinitionID)
				roleNames[auth.RoleDefinitionID] = roleName
			}
			del.Authorizations = append(del.Authorizations, AuthorizationReport{
				PrincipalID:   auth.PrincipalID,
				PrincipalName: auth.PrincipalIDDisplayName,
				RoleID:        auth.RoleDefinitionID,
				RoleName:      roleName,
			})
			if auth.PrincipalIDDisplayName == expected.GroupName && roleName == expected.RoleName {
				matched = true
			}
		}

		if matched {
			del.Compliance = fmt.Sprintf("OK: %s delegated as %s", expected.GroupName, expected.RoleName)
		} else {
			del.Compliance = fmt.Sprintf("MISSING: no authorization grants %s to %s", expected.RoleName, expected.GroupName)
		}

		delegations = append(delegations, del)
	}

	return delegations, nil
}

// resolveRoleName tolerates unresolvable role ids; a delegation can carry
// roles the verifying credential cannot read.
func (d *Deployer) resolveRoleName(ctx context.Context, subscriptionID, roleDefinitionID string) string {
	def, err := d.api.GetRoleDefinition(ctx, subscriptionID, roleDefinitionID)
	if err != nil {
		log.Debug().Err(err).Str("role_definition_id", roleDefinitionID).Msg("Role definition not resolvable")
		return UnknownRoleName
	}
	return def.Properties.RoleName
}

// tenantNameFromAssignments is the fallback for definitions that omit the
// managing tenant's friendly name: the expanded assignment view usually
// carries it.
func (d *Deployer) tenantNameFromAssignments(ctx context.Context, subscriptionID, definitionID string) string {
	assignments, err := d.api.ListRegistrationAssignments(ctx, subscriptionID)
	if err != nil {
		log.Debug().Err(err).Str("subscription", subscriptionID).Msg("Registration assignments not readable")
		return ""
	}
	for _, a := range assignments {
		if a.Properties.RegistrationDefinitionID != definitionID {
			continue
		}
		if a.Properties.RegistrationDefinition != nil {
			return a.Properties.RegistrationDefinition.Properties.ManagedByTenantName
		}
	}
	return ""
}
