package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"nvconfig/internal/checksum"
	"nvconfig/internal/config"
	"nvconfig/internal/storage"
	"nvconfig/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usage = `nvconfig: inspect and edit a CRC-protected configuration image.

Usage:
  nvconfig [flags] <command> [args]

Commands:
  init               validate the image and repair it if needed
  get <a|b>          print one option
  set <a|b> <value>  change one option (written through to every slot)
  inspect            show each slot without repairing anything
  export <file>      write the current settings to a CBOR snapshot
  import <file>      apply a CBOR snapshot to the image
  version            print the version

Flags must come before the command.

Flags:
`

// errUsage marks errors caused by bad arguments; main exits with 2.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// env is what every command runs against.
type env struct {
	cfg    *config.Config
	crc    checksum.Provider
	store  *store.Store
	logger *slog.Logger
	out    io.Writer
	json   bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var configPath, logLevel string
	var jsonOutput bool

	flagSet := pflag.NewFlagSet("nvconfig", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	// Stop at the command name so negative values reach set.
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to config file (default: $"+config.EnvConfigPath+")")
	flagSet.StringVar(&logLevel, "log-level", "", "override log level: debug, info, warn, error")
	flagSet.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return fmt.Errorf("%w: missing command", errUsage)
	}
	name, cmdArgs := rest[0], rest[1:]

	if name == "version" {
		fmt.Fprintf(stdout, "nvconfig %s\n", Version)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(cmdArgs) != cmd.args {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, name, cmd.args, len(cmdArgs))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := newLogger(cfg.Log, stderr)

	crc, err := checksum.ByName(cfg.Device.Checksum)
	if err != nil {
		return err
	}
	dev, err := storage.Open(cfg.Device.Kind, cfg.Device.Path, cfg.Device.Size)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(dev); err != nil {
			logger.Error("close device", "error", err)
		}
	}()

	opts := cfg.StoreOptions()
	opts.Logger = logger

	logger.Debug("opened device",
		"kind", cfg.Device.Kind,
		"path", cfg.Device.Path,
		"size", cfg.Device.Size,
		"redundant", opts.Redundant,
	)

	return cmd.run(&env{
		cfg:    cfg,
		crc:    crc,
		store:  store.New(dev, crc, opts),
		logger: logger,
		out:    stdout,
		json:   jsonOutput,
	}, cmdArgs)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
