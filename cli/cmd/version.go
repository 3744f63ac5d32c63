package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/preload/cli/render"
	"github.com/pithecene-io/preload/types"
)

// VersionResponse is the output of the version command.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	ContractVersion string `json:"contract_version" yaml:"contract_version"`
	Commit          string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version command", exitRunError)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitConfigError)
			}
			return r.Render(VersionResponse{
				Version:         types.Version,
				ContractVersion: types.ContractVersion,
				Commit:          commit,
			})
		},
	}
}
