package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/scan"
)

type ScanCmd struct{}

func (s *ScanCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}

	ac, principal, err := newARMClient(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().Str("principal", principal.ObjectID).Msg("Scanning subscription eligibility")

	result, err := scan.New(ac).Run(ctx, principal.ObjectID)
	if err != nil {
		return err
	}

	renderScanResult(os.Stdout, result)
	return nil
}
