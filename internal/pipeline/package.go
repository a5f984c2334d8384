// Package pipeline sequences the provisioning stages. Both pipelines share
// the same discipline: resolve-or-create, verify by read-back, link, then
// report, always forward, no rollback. Re-running after a partial failure
// is the recovery mechanism; every stage is guarded by an existence check,
// so restarts are safe.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/config"
	"github.com/mspkit/delegate/internal/directory"
	"github.com/mspkit/delegate/internal/entitlement"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/guests"
)

// Package runs the access-package pipeline: privileged group, role
// activation and assignment, guest onboarding, then the entitlement chain
// ending in the auto-assignment policy.
type Package struct {
	Groups       *directory.Groups
	Roles        *directory.Roles
	Entitlements *entitlement.Service
	Guests       *guests.Engine
	Config       *config.Config
}

// Run executes the stages in dependency order. Configuration and
// permission errors abort immediately; verification mismatches downgrade
// the affected stage to a warning and downstream stages that structurally
// depend on it are skipped, everything else proceeds.
func (p *Package) Run(ctx context.Context, records []guests.Record) (*PackageReport, error) {
	report := &PackageReport{}

	// Precondition gate: a role name that does not exist in this platform
	// edition must abort before any group or role mutation happens.
	if err := p.Roles.CheckAvailable(ctx, p.Config.RoleName); err != nil {
		report.add("role precondition", p.Config.RoleName, OutcomeFailed, err.Error())
		return report, err
	}

	group, err := p.ensureGroup(ctx, report)
	if err != nil {
		return report, err
	}

	role, err := p.Roles.EnsureActive(ctx, p.Config.RoleName)
	if err != nil {
		report.add("role activation", p.Config.RoleName, OutcomeFailed, err.Error())
		return report, err
	}
	report.add("role activation", p.Config.RoleName, OutcomeExisting, "role active")

	assigned, err := p.Roles.EnsureAssigned(ctx, role.ID, group.ID)
	if err != nil {
		report.add("role assignment", group.DisplayName, OutcomeFailed, err.Error())
		return report, err
	}
	report.add("role assignment", group.DisplayName, outcomeOf(assigned), "group member of "+role.DisplayName)

	if len(records) > 0 {
		report.Guests = p.Guests.Run(ctx, records)
		s := guests.Summarize(report.Guests)
		log.Info().
			Int("invited", s.Invited).
			Int("existing", s.Existing).
			Int("failed", s.Failed).
			Msg("Guest pass complete")
	}

	catalog, created, err := p.Entitlements.EnsureCatalog(ctx, p.Config.CatalogName, "Delegated administration resources")
	if err != nil {
		report.add("catalog", p.Config.CatalogName, OutcomeFailed, err.Error())
		return report, err
	}
	report.add("catalog", p.Config.CatalogName, outcomeOf(created), catalog.ID)

	pkg, created, err := p.Entitlements.EnsurePackage(ctx, catalog.ID, p.Config.PackageName, "Grants membership of the delegated administration group")
	if err != nil {
		report.add("access package", p.Config.PackageName, OutcomeFailed, err.Error())
		return report, err
	}
	report.add("access package", p.Config.PackageName, outcomeOf(created), pkg.ID)

	resource, err := p.ensureResource(ctx, report, catalog.ID, group)
	if err != nil {
		return report, err
	}

	p.linkRole(ctx, report, catalog.ID, pkg.ID, resource)

	_, created, err = p.Entitlements.EnsurePolicy(ctx, pkg.ID, p.Config.PolicyName, p.Config.Rule())
	if err != nil {
		report.add("assignment policy", p.Config.PolicyName, OutcomeFailed, err.Error())
		return report, err
	}
	report.add("assignment policy", p.Config.PolicyName, outcomeOf(created), "rule-matched auto assignment")

	return report, nil
}

func (p *Package) ensureGroup(ctx context.Context, report *PackageReport) (*graph.Group, error) {
	spec := graph.GroupSpec{
		DisplayName:     p.Config.GroupName,
		Description:     p.Config.GroupDescription,
		MailNickname:    mailNickname(p.Config.GroupName),
		MailEnabled:     false,
		SecurityEnabled: true,
	}

	group, created, err := p.Groups.Ensure(ctx, spec)
	if err != nil {
		report.add("security group", p.Config.GroupName, OutcomeFailed, err.Error())
		return nil, err
	}
	report.add("security group", p.Config.GroupName, outcomeOf(created), group.ID)
	return group, nil
}

// ensureResource degrades to a warning on verification mismatch: the
// platform may still be processing the registration, and the rest of the
// pipeline can proceed without the binding. Every other error class aborts
// the run like any other stage failure.
func (p *Package) ensureResource(ctx context.Context, report *PackageReport, catalogID string, group *graph.Group) (*graph.Resource, error) {
	resource, err := p.Entitlements.EnsureRegistered(ctx, catalogID, group)
	if err != nil {
		var v *apierror.Verification
		if errors.As(err, &v) {
			log.Warn().Str("group", group.DisplayName).Msg("Catalog resource not visible yet, skipping role binding")
			report.add("catalog resource", group.DisplayName, OutcomeWarned, err.Error())
			return nil, nil
		}
		report.add("catalog resource", group.DisplayName, OutcomeFailed, err.Error())
		return nil, err
	}
	report.add("catalog resource", group.DisplayName, OutcomeExisting, resource.ID)
	return resource, nil
}

// linkRole is stage-fatal only: a missing Member role or unresolved
// resource is logged and the pipeline continues to the policy stage, since
// an operator can complete the binding manually.
func (p *Package) linkRole(ctx context.Context, report *PackageReport, catalogID, packageID string, resource *graph.Resource) {
	if resource == nil {
		report.add("role-scope binding", p.Config.PackageName, OutcomeSkipped, "catalog resource unresolved")
		return
	}

	_, created, err := p.Entitlements.LinkRoleToPackage(ctx, catalogID, packageID, resource, entitlement.DefaultResourceRole)
	if err != nil {
		log.Warn().Err(err).Str("package_id", packageID).Msg("Role-scope binding incomplete")
		report.add("role-scope binding", p.Config.PackageName, OutcomeWarned, err.Error())
		return
	}
	report.add("role-scope binding", p.Config.PackageName, outcomeOf(created), entitlement.DefaultResourceRole)
}

func outcomeOf(created bool) Outcome {
	if created {
		return OutcomeCreated
	}
	return OutcomeExisting
}

// mailNickname derives a mail nickname from a display name; the platform
// rejects spaces and most punctuation.
func mailNickname(displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "group"
	}
	return b.String()
}
