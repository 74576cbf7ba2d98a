package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/todosync/internal"
	pkgconfig "github.com/starford/todosync/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}
	return cfg, nil
}

// action adapts an internal entry point to a cli action.
func action(run func(ctx context.Context, opts ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(ctx, internal.WithConfig(cfg))
	}
}

func fetch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := internal.FetchRequest{
		Budget:    cmd.Args().Slice(),
		Substring: cmd.String("substring"),
		Keywords:  cmd.StringSlice("keyword"),
		Run:       cmd.Bool("run"),
	}
	if t := cmd.String("time"); t != "" {
		req.Budget = append(strings.Fields(t), req.Budget...)
	}

	return internal.RunFetch(ctx, req, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "todosync",
		Usage: "Keep a master todo list in step with the checklists in your notes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "todosync.yaml",
				Value:       "todosync.yaml",
				Sources:     cli.EnvVars("TODOSYNC_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Collect new todos from notes and write completions back",
				Action: action(internal.RunSync),
			},
			{
				Name:   "watch",
				Usage:  "Sync whenever notes or the master list change",
				Action: action(internal.RunWatch),
			},
			{
				Name:      "fetch",
				Usage:     "Pick outstanding todos for a work session",
				ArgsUsage: "[<n> h] [<n> m]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "time",
						Aliases: []string{"t"},
						Usage:   `Session length, e.g. "1 h 30 m"`,
					},
					&cli.StringFlag{
						Name:    "substring",
						Aliases: []string{"s"},
						Usage:   "List todos containing this text",
					},
					&cli.StringSliceFlag{
						Name:    "keyword",
						Aliases: []string{"k"},
						Usage:   "List todos containing every keyword (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "run",
						Usage: "Start an interactive session on the result",
					},
				},
				Action: fetch,
			},
			{
				Name:   "init",
				Usage:  "Create the master list, notes directories and state location",
				Action: action(internal.RunInit),
			},
			{
				Name:   "status",
				Usage:  "Show tracked, completed and outstanding counts",
				Action: action(internal.RunStatus),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
