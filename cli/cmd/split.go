package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/preload/cli/render"
	"github.com/pithecene-io/preload/manifest"
	"github.com/pithecene-io/preload/partition"
)

// SegmentView describes one segment of a split.
type SegmentView struct {
	Index int    `json:"index" yaml:"index"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Size  int    `json:"size" yaml:"size"`
	First string `json:"first" yaml:"first"`
	Last  string `json:"last" yaml:"last"`
}

// SplitCommand returns the split command: a dry run that parses a class
// list and shows how it would be partitioned, without resolving anything.
func SplitCommand() *cli.Command {
	return &cli.Command{
		Name:  "split",
		Usage: "Show how a class list would be partitioned (dry run)",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"m"},
				Usage:    "Path to the class list",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Partition count (default: number of CPUs)",
			},
		}, ReadOnlyFlags()...),
		Action: splitAction,
	}
}

func splitAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for split command", exitRunError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	workers := c.Int("workers")
	if !c.IsSet("workers") {
		workers = runtime.NumCPU()
	}

	m, err := manifest.Load(c.String("manifest"), nil)
	if err != nil {
		return cli.Exit(err.Error(), exitRunError)
	}
	views, err := splitManifest(m, workers)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	return r.Render(views)
}

func splitManifest(m *manifest.Manifest, workers int) ([]SegmentView, error) {
	segs, err := partition.Split(m.Entries, workers, manifest.EntryName)
	if err != nil {
		return nil, err
	}
	views := make([]SegmentView, 0, len(segs))
	for _, s := range segs {
		views = append(views, SegmentView{
			Index: s.Index,
			Start: s.Start,
			End:   s.End,
			Size:  s.Len(),
			First: s.Items[0].Name,
			Last:  s.Items[len(s.Items)-1].Name,
		})
	}
	return views, nil
}
