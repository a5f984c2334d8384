package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/directory"
	"github.com/mspkit/delegate/internal/entitlement"
	"github.com/mspkit/delegate/internal/guests"
	"github.com/mspkit/delegate/internal/pipeline"
)

type ProvisionCmd struct {
	Guests      string `help:"CSV guest list (displayName,email[,tag])" type:"path"`
	Group       string `help:"Override the security group display name"`
	Role        string `help:"Override the directory role display name"`
	Catalog     string `help:"Override the catalog display name"`
	Package     string `help:"Override the access package display name"`
	Policy      string `help:"Override the assignment policy display name"`
	EmployeeTag string `help:"Override the correlating employee tag"`
}

func (p *ProvisionCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	applyOverride(&cfg.GroupName, p.Group)
	applyOverride(&cfg.RoleName, p.Role)
	applyOverride(&cfg.CatalogName, p.Catalog)
	applyOverride(&cfg.PackageName, p.Package)
	applyOverride(&cfg.PolicyName, p.Policy)
	applyOverride(&cfg.EmployeeTag, p.EmployeeTag)

	var records []guests.Record
	if p.Guests != "" {
		records, err = loadGuestList(p.Guests, cfg.EmployeeTag)
		if err != nil {
			return err
		}
	}

	gc, err := newGraphClient(ctx, cfg)
	if err != nil {
		return err
	}

	policy := retryPolicy(cfg)
	pipe := &pipeline.Package{
		Groups:       directory.NewGroups(gc),
		Roles:        directory.NewRoles(gc, policy),
		Entitlements: entitlement.NewService(gc, policy),
		Guests:       guests.NewEngine(gc, policy, ""),
		Config:       cfg,
	}

	log.Info().
		Str("group", cfg.GroupName).
		Str("role", cfg.RoleName).
		Str("catalog", cfg.CatalogName).
		Int("guests", len(records)).
		Msg("Starting access package pipeline")

	report, err := pipe.Run(ctx, records)
	if report != nil {
		renderPackageReport(os.Stdout, report)
	}
	return err
}

func applyOverride(target *string, value string) {
	if value != "" {
		*target = value
	}
}
