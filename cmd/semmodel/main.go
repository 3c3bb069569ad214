// Package main implements the semmodel command line tool. It normalizes
// values and tags against the data model, applies model extension batches
// and serves the model with its metrics and change event stream.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/errors"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semmodel"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := validateFlags(cli); err != nil {
		return err
	}
	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (build: %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cli.ShowHelp {
		cli.usage(stdout)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log.Level, cfg.Log.Format, stderr)

	if cli.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	cmd, rest := cli.Args[0], cli.Args[1:]
	switch cmd {
	case "tag":
		// Tag normalization needs no model.
		return runTag(cfg, rest, stdout)
	case "norm", "types", "model", "apply", "serve":
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown command %q", cmd), "CLI", "run", "dispatch command")
	}

	a, err := newApp(ctx, cfg, logger, appOptions{serve: cmd == "serve"})
	if err != nil {
		return err
	}
	defer a.Close(cli.ShutdownTimeout)

	switch cmd {
	case "norm":
		return runNorm(a, rest, stdout)
	case "types":
		return runTypes(a, stdout)
	case "model":
		return writeJSON(stdout, packModel(a.model))
	case "apply":
		return runApply(ctx, a, cli.User, rest, stdout)
	default:
		return runServe(ctx, a, cli, rest)
	}
}

func loadConfig(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, errors.WrapInvalid(err, "CLI", "loadConfig", "load configuration")
	}

	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "CLI", "loadConfig", "validate configuration")
	}
	return cfg, nil
}
