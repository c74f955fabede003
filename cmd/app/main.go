package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/arbor/internal"
	pkgconfig "github.com/starford/arbor/pkg/config"
)

var version = "dev"

// loadConfig requires the file when --config or APP_CONFIG_FILE names one.
// The default path may be absent, leaving the built-in defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func options(cmd *cli.Command, extra ...internal.Option) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return append([]internal.Option{internal.WithConfig(cfg), internal.WithVersion(version)}, extra...), nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func seed(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	n, err := internal.Seed(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("created %d sample articles\n", n)
	return nil
}

func importDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: %s import <dir>", cmd.Root().Name)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	rep, err := internal.Import(ctx, dir, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("created %d, updated %d, unchanged %d, skipped %d\n",
		rep.Created, rep.Updated, rep.Unchanged, rep.Skipped)
	return nil
}

func exportDir(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: %s export [--prune] <dir>", cmd.Root().Name)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	n, err := internal.Export(ctx, dir, cmd.Bool("prune"), opts...)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d articles to %s\n", n, dir)
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	// Stdout carries the protocol.
	opts, err := options(cmd, internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "arbor",
		Usage:   "Hierarchical Markdown article manager with a web UI, JSON API and MCP tools",
		Version: version,
		Action:  serve,
		Flags:   []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "seed",
				Usage:  "Create the sample article hierarchy",
				Action: seed,
			},
			{
				Name:      "import",
				Usage:     "Import Markdown files with front matter from a directory",
				ArgsUsage: "<dir>",
				Action:    importDir,
			},
			{
				Name:      "export",
				Usage:     "Export every article to <slug>.md in a directory",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Remove Markdown files that no longer match an article",
					},
				},
				Action: exportDir,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdin/stdout",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
