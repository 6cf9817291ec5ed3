package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tgreet/modules/platform/auth"
	"tgreet/modules/platform/config"
	"tgreet/modules/platform/greetd"
	"tgreet/modules/platform/logger"
	"tgreet/modules/platform/sessions"
	"tgreet/modules/platform/system"
	"tgreet/modules/ui/console"
	"tgreet/modules/ui/tui"
)

// greeter holds everything a front-end needs to run one login
type greeter struct {
	cfg      *config.Config
	opts     auth.Options
	sessions []sessions.Session
	power    *system.Power
}

// newGreeter resolves configuration and prepares a login against greetd
func newGreeter(flags *globalFlags, logToStderr bool) (*greeter, func(), error) {
	cfg, err := config.Resolve(flags.configPath, flags.overrides())
	if err != nil {
		return nil, nil, err
	}

	closeLog, err := setupLogging(cfg.Logger, flags.verbose, logToStderr)
	if err != nil {
		return nil, nil, err
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		closeLog()
		return nil, nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	socket, err := resolveSocket(flags.socketPath, cfg.SocketPath)
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	g := newGreeterWith(cfg, socket, nil)
	logger.Info("greeting %s via %s (%d sessions)", cfg.User, socket, len(g.sessions))
	return g, closeLog, nil
}

// newGreeterWith builds a greeter for an already resolved config
func newGreeterWith(cfg *config.Config, socket string, spawn system.Spawner) *greeter {
	return &greeter{
		cfg: cfg,
		opts: auth.Options{
			SocketPath:      socket,
			Env:             cfg.SessionEnv,
			RetryBackoffMin: cfg.RetryBackoffMin,
			RetryBackoffMax: cfg.RetryBackoffMax,
		},
		sessions: sessions.Discover(cfg.DefaultSessionName, cfg.DefaultSessionCommand),
		power:    system.NewPower(cfg.Power.RebootCommand, cfg.Power.PowerOffCommand, spawn),
	}
}

// resolveSocket picks the flag, then the config file, then $GREETD_SOCK
func resolveSocket(flag, configured string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if configured != "" {
		return configured, nil
	}
	return greetd.SocketPathFromEnv()
}

func (g *greeter) runTUI(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("stdin is not a terminal, use 'tgreet console' instead")
	}

	host := system.NewHostCollector(time.Minute)
	host.Start()
	defer host.Stop()

	return auth.Run(ctx, g.cfg.User, g.opts, func(h *auth.Handle) error {
		return tui.Run(ctx, h, tui.Options{
			User:     g.cfg.User,
			Sessions: g.sessions,
			UI:       g.cfg.UI,
			Power:    g.power,
			Host:     host,
		})
	})
}

func (g *greeter) runConsole(ctx context.Context, in io.Reader, out io.Writer, sessionQuery string) error {
	session, err := g.pickSession(sessionQuery)
	if err != nil {
		return err
	}

	reader, err := console.NewReader(in, out)
	if err != nil {
		return err
	}
	defer reader.Close()

	return auth.Run(ctx, g.cfg.User, g.opts, func(h *auth.Handle) error {
		return console.New(h, reader, out, session).Run(ctx)
	})
}

// pickSession returns the default session, or the first whose name contains query
func (g *greeter) pickSession(query string) (sessions.Session, error) {
	if query == "" {
		return g.sessions[0], nil
	}
	matches := sessions.Filter(g.sessions, query, 1)
	if len(matches) == 0 {
		return sessions.Session{}, fmt.Errorf("no session matches %q", query)
	}
	return matches[0], nil
}

func newConsoleCommand(flags *globalFlags) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run a line-mode greeter on stdin/stdout",
		Long: `Run the login conversation line by line. Passwords are masked when stdin
is a terminal. Useful on serial consoles and for scripting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, closeLog, err := newGreeter(flags, true)
			if err != nil {
				return err
			}
			defer closeLog()
			return g.runConsole(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), session)
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "Launch the first session whose name contains this text")

	return cmd
}
