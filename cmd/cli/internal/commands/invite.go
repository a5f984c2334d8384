package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/guests"
	"github.com/mspkit/delegate/internal/pipeline"
)

type InviteCmd struct {
	Guests      string `arg:"" help:"CSV guest list (displayName,email[,tag])" type:"path"`
	EmployeeTag string `help:"Override the correlating employee tag"`
	RedirectURL string `help:"Landing URL for accepted invitations"`
}

func (i *InviteCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	applyOverride(&cfg.EmployeeTag, i.EmployeeTag)

	records, err := loadGuestList(i.Guests, cfg.EmployeeTag)
	if err != nil {
		return err
	}

	gc, err := newGraphClient(ctx, cfg)
	if err != nil {
		return err
	}

	engine := guests.NewEngine(gc, retryPolicy(cfg), i.RedirectURL)

	log.Info().Int("guests", len(records)).Msg("Starting guest invitation pass")

	results := engine.Run(ctx, records)
	renderGuests(os.Stdout, &pipeline.PackageReport{Guests: results})

	s := guests.Summarize(results)
	fmt.Printf("\n%d invited, %d existing, %d failed\n", s.Invited, s.Existing, s.Failed)
	return nil
}
