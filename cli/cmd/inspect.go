package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/preload/cli/reader"
	"github.com/pithecene-io/preload/cli/render"
	"github.com/pithecene-io/preload/cli/tui"
)

// InspectCommand returns the inspect command, which lists the records of
// an archive.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "List the records of an archive",
		Flags: append(append(archiveFlags(),
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show records of this kind: loaded or source",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Only show the record with this class name",
			},
		), ReadOnlyFlags()...),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	a, err := reader.Load(c.Context, sourceFromFlags(c))
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}

	items := filterItems(a.Items(), c.String("kind"), c.String("name"))
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewInspect, items)
	}
	return r.Render(items)
}

func filterItems(items []reader.RecordItem, kind, name string) []reader.RecordItem {
	if kind == "" && name == "" {
		return items
	}
	out := make([]reader.RecordItem, 0, len(items))
	for _, it := range items {
		if kind != "" && it.Kind != kind {
			continue
		}
		if name != "" && it.Name != name {
			continue
		}
		out = append(out, it)
	}
	return out
}

// sourceFromFlags reads the archiveFlags of c.
func sourceFromFlags(c *cli.Context) reader.Source {
	return reader.Source{
		Backend:   c.String("backend"),
		Path:      c.String("archive"),
		RunID:     c.String("run-id"),
		Dataset:   c.String("dataset"),
		Storage:   c.String("lode-storage"),
		Region:    c.String("s3-region"),
		Endpoint:  c.String("s3-endpoint"),
		PathStyle: c.Bool("s3-path-style"),
	}
}
