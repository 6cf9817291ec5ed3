package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tgreet/modules/platform/greetd/fakegreet"
	"tgreet/modules/platform/logger"
)

const (
	previewUser     = "preview"
	previewPassword = "password"
)

func newPreviewCommand(flags *globalFlags) *cobra.Command {
	var (
		password    string
		motd        string
		startError  string
		lineMode    bool
		sessionName string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Try the greeter against a built-in fake greetd",
		Long: `Run a front-end against an in-process fake greetd so the greeter can be
tested without logging anyone in. Power actions and session launches are only
logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveOptional(flags)
			if err != nil {
				return err
			}
			if cfg.User == "" {
				cfg.User = previewUser
			}
			if cfg.DefaultSessionCommand == "" {
				cfg.DefaultSessionName = "Shell"
				cfg.DefaultSessionCommand = "$SHELL"
			}

			closeLog, err := setupLogging(cfg.Logger, flags.verbose, lineMode)
			if err != nil {
				return err
			}
			defer closeLog()

			dir, err := os.MkdirTemp("", "tgreet-preview")
			if err != nil {
				return fmt.Errorf("failed to create preview directory: %w", err)
			}
			defer os.RemoveAll(dir)

			handler := fakegreet.NewPasswordHandler(map[string]string{cfg.User: password}, motd)
			handler.StartError = startError

			srv := fakegreet.NewServer(filepath.Join(dir, "greetd.sock"), handler)
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Stop()

			g := newGreeterWith(cfg, srv.SocketPath(), func(name string, args ...string) error {
				logger.Info("preview: would run %s %s", name, strings.Join(args, " "))
				return nil
			})

			if lineMode {
				err = g.runConsole(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sessionName)
			} else {
				err = g.runTUI(cmd.Context())
			}

			for _, launched := range handler.Launched() {
				fmt.Fprintf(cmd.OutOrStdout(), "would start: %s\n", strings.Join(launched, " "))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&password, "password", previewPassword, "Password the fake greetd accepts")
	cmd.Flags().StringVar(&motd, "motd", "", "Info message sent before the password prompt")
	cmd.Flags().StringVar(&startError, "start-error", "", "Fail every session start with this message")
	cmd.Flags().BoolVar(&lineMode, "console", false, "Use the line-mode front-end")
	cmd.Flags().StringVarP(&sessionName, "session", "s", "", "Session for the line-mode front-end")

	return cmd
}
