package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hanaasagi/tlmode/cmd"
	"github.com/Hanaasagi/tlmode/internal/logger"
)

const appName = "tlmode"

var (
	Version     = "0.1.0"
	CommitSha   = "unknown"
	FullVersion = Version + "-" + CommitSha
)

// app carries flag values and the loaded config between cobra hooks.
type app struct {
	configPath     string
	logLevel       string
	storageBackend string
	showVersion    bool

	stateDir   string
	cfg        *Config
	logCloser  io.Closer
	isTerminal func(io.Reader) bool
}

func newApp() *app {
	return &app{
		stateDir:   filepath.Join(xdg.StateHome, appName),
		isTerminal: stdinIsTerminal,
	}
}

func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// setup runs before every command: config first, then logging, so the log
// level may come from either.
func (a *app) setup(c *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		return err
	}
	if a.storageBackend != "" {
		cfg.Storage.Backend = a.storageBackend
	}
	a.cfg = cfg

	level := a.logLevel
	if !c.Flags().Changed("log-level") {
		if env := os.Getenv("TLMODE_LOG"); env != "" {
			level = env
		}
	}
	closer, err := logger.InitLogger(filepath.Join(a.stateDir, appName+".log"), level)
	if err != nil {
		return err
	}
	a.logCloser = closer

	slog.Debug("config loaded", "path", path, "backend", cfg.Storage.Backend)
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close() // nolint: errcheck
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Type chat messages with /macro shortcuts",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Type chat messages with /macro shortcuts expanded as you go. %s",
			color.New(color.FgBlue).Sprintf("(%s)", FullVersion),
		),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(c *cobra.Command, args []string) error {
			if a.showVersion {
				fmt.Fprintf(c.OutOrStdout(), "%s version: %s\n", appName, FullVersion)
				return nil
			}
			if a.isTerminal(c.InOrStdin()) {
				return a.runInteractive(c)
			}
			return a.runPipe(c)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path, NONE to skip (default $XDG_CONFIG_HOME/tlmode/config.toml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&a.storageBackend, "storage", "", "Storage backend: memory, file or sqlite")
	rootCmd.Flags().BoolVarP(&a.showVersion, "version", "v", false, "Print version and exit")

	rootCmd.AddGroup(cmd.Groups()...)
	rootCmd.AddCommand(
		newExpandCmd(a),
		newMacrosCmd(a),
		newWordsCmd(a),
	)

	rootCmd.SetHelpTemplate(cmd.HelpTemplate)
	rootCmd.SetUsageFunc(func(c *cobra.Command) error {
		return cmd.ColorUsageFunc(c.OutOrStderr(), c)
	})

	return rootCmd
}

func main() {
	a := newApp()

	if err := os.MkdirAll(a.stateDir, 0o755); err == nil {
		crashFilePath := filepath.Join(a.stateDir, "crash")
		if f, err := os.Create(crashFilePath); err == nil {
			_ = debug.SetCrashOutput(f, debug.CrashOptions{})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("Error executing command", "error", err)
	}
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
