package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/mspkit/delegate/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Provision commands.ProvisionCmd `cmd:"" help:"Provision the access package pipeline"`
		Invite    commands.InviteCmd    `cmd:"" help:"Invite and tag guests from a guest list"`
		Onboard   commands.OnboardCmd   `cmd:"" help:"Deploy and verify the delegation per eligible subscription"`
		Scan      commands.ScanCmd      `cmd:"" help:"Report subscription role eligibility"`
		Config    string                `help:"Path to YAML config file" type:"path"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, ConfigPath: cli.Config, Version: version})
	cmd.FatalIfErrorf(err)
}
