package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	User            string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	// Args holds the subcommand and its arguments.
	Args []string

	usage func(w io.Writer)
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEMMODEL_CONFIG", ""),
		"Path to configuration file, defaults when empty (env: SEMMODEL_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("SEMMODEL_CONFIG", ""),
		"Path to configuration file, defaults when empty (env: SEMMODEL_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEMMODEL_LOG_LEVEL", ""),
		"Log level override: debug, info, warn, error (env: SEMMODEL_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEMMODEL_LOG_FORMAT", ""),
		"Log format override: json, text (env: SEMMODEL_LOG_FORMAT)")

	fs.StringVar(&cfg.User, "user",
		getEnv("SEMMODEL_USER", "root"),
		"User that model changes are made as (env: SEMMODEL_USER)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SEMMODEL_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: SEMMODEL_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", getEnvBool("SEMMODEL_VALIDATE", false),
		"Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Args = fs.Args()
	cfg.usage = func(w io.Writer) {
		fs.SetOutput(w)
		printDetailedHelp(fs, w)
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	if cfg.Validate {
		return nil
	}
	if len(cfg.Args) == 0 {
		return fmt.Errorf("missing command")
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - Data model schema and value normalization

Usage: %s [options] <command> [args]

Commands:
  norm [-json] <type> <value>   Normalize a value with a model type
  tag <text>                    Normalize a tag and list its ancestry
  types                         List the registered types
  model                         Print the current model
  apply <ops.json|ops.yaml>     Apply a batch of model extension operations
  serve [ops files...]          Serve metrics, the model and the event stream

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Normalize a lat/long
  %s norm geo:latlong "12.345, -56.78"

  # Apply extension operations as a policy user
  %s --config=semmodel.yaml --user=visi apply ops.yaml

  # Serve with text logging
  %s --log-level=debug --log-format=text serve

Version: %s
Build: %s
`, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
