// Package commands is the tgreet command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgreet/modules/platform/auth"
	"tgreet/modules/platform/config"
	"tgreet/modules/platform/logger"
)

// Exit codes
const (
	ExitOK        = 0
	ExitError     = 1
	ExitInvariant = 3
)

// globalFlags are shared by every command
type globalFlags struct {
	configPath string
	socketPath string
	verbose    bool

	user           string
	sessionName    string
	sessionCommand string
}

func (f *globalFlags) overrides() config.Overrides {
	return config.Overrides{
		User:           f.user,
		SessionName:    f.sessionName,
		SessionCommand: f.sessionCommand,
	}
}

// BuildInfo identifies the binary
type BuildInfo struct {
	Version   string
	BuildDate string
}

// NewRootCommand creates the tgreet command tree
func NewRootCommand(info BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "tgreet",
		Short: "Terminal greeter for greetd",
		Long: `tgreet is a greeter for the greetd login manager.

It authenticates the configured user through greetd and starts the chosen
desktop session. Run it as greetd's greeter command:

  [default_session]
  command = "tgreet --config /etc/greetd/tgreet.yaml"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closeLog, err := newGreeter(flags, false)
			if err != nil {
				return err
			}
			defer closeLog()
			return g.runTUI(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (default "+config.DefaultConfigPath+")")
	pf.StringVar(&flags.socketPath, "socket", "", "greetd socket path (default $GREETD_SOCK)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&flags.user, "user", "u", "", "User to log in")
	pf.StringVarP(&flags.sessionName, "session-name", "n", "", "Name of the default session")
	pf.StringVarP(&flags.sessionCommand, "session-command", "C", "", "Command of the default session")

	rootCmd.AddCommand(
		newConsoleCommand(flags),
		newSessionsCommand(flags),
		newPreviewCommand(flags),
		newVersionCommand(info),
	)

	return rootCmd
}

// Execute runs the command line and returns the process exit code
func Execute(info BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(info).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, auth.ErrInvariantViolated) {
			return ExitInvariant
		}
		return ExitError
	}
	return ExitOK
}

// resolveOptional resolves configuration like config.Resolve but falls back
// to the defaults when the file is missing
func resolveOptional(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Resolve(flags.configPath, flags.overrides())
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
		cfg.User = flags.user
		cfg.DefaultSessionName = flags.sessionName
		cfg.DefaultSessionCommand = flags.sessionCommand
		return cfg, nil
	}
	return cfg, err
}

// setupLogging installs the global logger. The TUI owns the terminal, so
// stderr is only used when toStderr is set.
func setupLogging(cfg *config.LoggerConfig, verbose, toStderr bool) (func(), error) {
	if cfg == nil {
		cfg = config.DefaultLoggerConfig()
	}

	level := logger.ParseLevel(cfg.Level)
	if verbose {
		level = logger.DEBUG
	}

	var outputs []io.Writer
	closeFn := func() {}

	if cfg.FilePath != "" {
		file, err := logger.CreateLogFile(cfg.FilePath, cfg.MaxSizeMB)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, file)
		closeFn = func() { file.Close() }
	}
	if toStderr {
		outputs = append(outputs, os.Stderr)
	}
	logger.SetGlobalLogger(logger.NewLogger(level, outputs, "tgreet"))
	return closeFn, nil
}
