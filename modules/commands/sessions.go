package commands

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"tgreet/modules/platform/sessions"
	"tgreet/modules/ui/tui"
)

func newSessionsCommand(flags *globalFlags) *cobra.Command {
	var (
		filter  string
		asJSON  bool
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions the greeter offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveOptional(flags)
			if err != nil {
				return err
			}

			closeLog, err := setupLogging(cfg.Logger, flags.verbose, true)
			if err != nil {
				return err
			}
			defer closeLog()

			list := sessions.Discover(cfg.DefaultSessionName, cfg.DefaultSessionCommand)
			if list[0].Command == "" {
				list = list[1:]
			}
			limit := sessions.DefaultFilterLimit
			if showAll {
				limit = len(list) + 1
			}
			list = sessions.Filter(list, filter, limit)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(tui.ColorBorder)).
				Headers("NAME", "COMMAND", "SOURCE")
			for _, s := range list {
				source := s.Path
				if s.IsDefault() {
					source = "(default)"
				}
				t.Row(s.Name, s.Command, source)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only list sessions whose name contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "List every match instead of the first ten")

	return cmd
}
