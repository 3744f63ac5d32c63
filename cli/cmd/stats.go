package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/preload/cli/reader"
	"github.com/pithecene-io/preload/cli/render"
	"github.com/pithecene-io/preload/cli/tui"
)

// StatsCommand returns the stats command, which summarizes an archive.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Summarize an archive by kind, loader and class version",
		Flags:  append(archiveFlags(), ReadOnlyFlags()...),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	a, err := reader.Load(c.Context, sourceFromFlags(c))
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	stats := a.Stats()
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStats, stats)
	}
	return r.Render(stats)
}
