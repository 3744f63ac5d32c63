// Package cmd provides the commands of the preload binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes.
const (
	exitSuccess     = 0
	exitRunError    = 1
	exitConfigError = 2
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode (inspect, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ReadOnlyFlags returns the shared flags for read-only commands.
// --tui is included everywhere so unsupported commands can reject it
// explicitly instead of failing with "flag provided but not defined".
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, NoColorFlag, TUIFlag}
}

// archiveFlags locate an archive for inspect and stats.
func archiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "archive",
			Usage:    "Archive path (frame file, Lode root, or bucket/prefix for S3)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Archive backend: frame or lode",
			Value: "frame",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Restrict a Lode archive to one run",
		},
		&cli.StringFlag{
			Name:  "dataset",
			Usage: "Lode dataset ID",
		},
		&cli.StringFlag{
			Name:  "lode-storage",
			Usage: "Lode storage: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "AWS region for S3 storage",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint (MinIO, R2)",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}
