package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/arbor/internal"
)

func runLoadConfig(t *testing.T, args ...string) (*internal.Config, error) {
	t.Helper()
	var (
		cfg     *internal.Config
		loadErr error
	)
	cmd := &cli.Command{
		Name:  "arbor",
		Flags: []cli.Flag{configFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, loadErr = loadConfig(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"arbor"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfig_DefaultPathMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_CONFIG_FILE", "")
	os.Unsetenv("APP_CONFIG_FILE")
	cfg, err := runLoadConfig(t)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.App.HTTP.Port)
	}
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := runLoadConfig(t, "--config", missing); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	if err := os.WriteFile(path, []byte("app:\n  http:\n    port: 9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := runLoadConfig(t, "-c", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.App.HTTP.Port)
	}
}
