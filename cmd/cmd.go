// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// setupCommand handles first-run setup of the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the PKCE authorization lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize in the browser and wait for the redirect",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect",
						Value: 2 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "complete",
				Usage: "Complete authorization from a pasted redirect URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.AuthComplete,
			},
			{
				Name:  "status",
				Usage: "Show whether a valid credential is stored",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored credential and pending verifier",
				Action: r.AuthLogout,
			},
		},
	}
}

// profileCommand handles building and reading listening profiles
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Build and inspect listening profiles",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Fetch top artists, tracks and mood, and store them as Side A",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ProfileBuild,
			},
			{
				Name:  "show",
				Usage: "Show a stored profile",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "slot",
						Usage: "Profile slot (self or partner)",
						Value: "self",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ProfileShow,
			},
			{
				Name:  "export",
				Usage: "Write a stored profile to a file for sharing",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "slot",
						Usage: "Profile slot (self or partner)",
						Value: "self",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json, markdown, text, csv)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: {userId}_wrapped.{ext})",
					},
				},
				Action: r.ProfileExport,
			},
			{
				Name:  "history",
				Usage: "List previously built profiles",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id (default: the stored self profile)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to return",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Print the archived profile with this id",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProfileHistory,
				Commands: []*cli.Command{
					{
						Name:  "export",
						Usage: "Export every archived build to a directory",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "user",
								Usage: "User id (default: the stored self profile)",
							},
							&cli.StringFlag{
								Name:    "format",
								Aliases: []string{"f"},
								Usage:   "Output format (json, markdown, text, csv)",
								Value:   "json",
							},
							&cli.StringFlag{
								Name:  "dir",
								Usage: "Output directory (default: wrapped_export_{epoch})",
							},
							&cli.IntFlag{
								Name:  "workers",
								Usage: "Concurrent workers",
								Value: 4,
							},
						},
						Action: r.ProfileHistoryExport,
					},
					{
						Name:  "delete",
						Usage: "Delete one archived build",
						Arguments: []cli.Argument{
							&cli.StringArg{Name: "id"},
						},
						Action: r.ProfileHistoryDelete,
					},
				},
			},
		},
	}
}

// partnerCommand handles the imported Side B profile
func partnerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "partner",
		Usage: "Manage the partner profile",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a partner's exported JSON profile",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.PartnerImport,
			},
			{
				Name:   "clear",
				Usage:  "Remove the partner profile",
				Action: r.PartnerClear,
			},
		},
	}
}

// mergeCommand compares the self and partner profiles
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Compare your profile with your partner's",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Output Markdown",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Merge,
	}
}

// tuiCommand returns the top-level TUI command for the cassette view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive mixtape view",
		Action:  r.TUI,
	}
}
