package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/lighthouse"
	"github.com/mspkit/delegate/internal/pipeline"
	"github.com/mspkit/delegate/internal/scan"
)

type OnboardCmd struct {
	Template   string `help:"Delegation template file (JSON)" type:"path"`
	Parameters string `help:"Template parameters file (JSON)" type:"path"`
	Location   string `help:"Deployment location"`
}

func (o *OnboardCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	if o.Template != "" {
		cfg.Lighthouse.TemplateFile = o.Template
	}
	if o.Parameters != "" {
		cfg.Lighthouse.ParametersFile = o.Parameters
	}
	if o.Location != "" {
		cfg.Lighthouse.Location = o.Location
	}
	if cfg.Lighthouse.Location == "" {
		return &apierror.Configuration{Key: "lighthouse.location", Msg: "deployment location is required"}
	}

	template, err := readJSONFile(cfg.Lighthouse.TemplateFile, "delegation template")
	if err != nil {
		return err
	}
	parameters, err := readJSONFile(cfg.Lighthouse.ParametersFile, "template parameters")
	if err != nil {
		return err
	}

	ac, principal, err := newARMClient(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("principal", principal.ObjectID).
		Str("location", cfg.Lighthouse.Location).
		Msg("Starting delegation pipeline")

	policy := retryPolicy(cfg)
	pipe := &pipeline.Onboard{
		Scanner:  scan.New(ac),
		Deployer: lighthouse.NewDeployer(ac, policy),
		Config:   cfg,
	}

	report, err := pipe.Run(ctx, principal.ObjectID, template, parameters)
	if err != nil {
		return err
	}

	if len(report.Scan.Eligible) == 0 {
		fmt.Println("no eligible subscriptions; nothing deployed")
		renderScanResult(os.Stdout, report.Scan)
		return nil
	}

	renderOnboardReport(os.Stdout, report)
	return nil
}

// readJSONFile loads a pass-through JSON document, validating shape only.
func readJSONFile(path, what string) (json.RawMessage, error) {
	if path == "" {
		return nil, &apierror.Configuration{Key: what, Msg: "file path is required"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierror.Configuration{Key: path, Msg: what + " not readable"}
	}
	if !json.Valid(data) {
		return nil, &apierror.Configuration{Key: path, Msg: what + " is not valid JSON"}
	}
	return json.RawMessage(data), nil
}
