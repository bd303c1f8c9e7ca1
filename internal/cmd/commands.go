package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/strata-cms/strata/internal/cmd/commands/serve"
	versioncmd "github.com/strata-cms/strata/internal/cmd/commands/version"
)

// Commands is the CLI command registry, populated by initCommands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	Commands = map[string]cli.CommandFactory{
		"serve": func() (cli.Command, error) {
			return &serve.Command{UI: ui, Log: log}, nil
		},
		"version": func() (cli.Command, error) {
			return &versioncmd.Command{UI: ui}, nil
		},
	}
}
