package cmd

import (
	"fmt"

	btable "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"authload/internal/report"
	"authload/internal/tui/history"
	"authload/internal/tui/styles"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or print one run's summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			sum, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render(*sum))
			return nil
		}

		items, err := store.List()
		if err != nil {
			return err
		}

		if browse, _ := cmd.Flags().GetBool("tui"); browse {
			_, err := tea.NewProgram(history.NewModel(items), tea.WithAltScreen()).Run()
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), historyTable(items))
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("tui", false, "browse runs interactively")
}

func historyTable(items []report.Summary) string {
	if len(items) == 0 {
		return styles.Subtle.Render("no runs recorded yet")
	}

	rows := lo.Map(history.Rows(items), func(r btable.Row, i int) []string {
		return append([]string{items[i].ID[:min(8, len(items[i].ID))]}, r...)
	})

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.ColorBorder)).
		Headers("ID", "STARTED", "WORKLOAD", "VUS", "ITER", "REQS", "P95 MS", "RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Active.Padding(0, 1)
			}
			if col == 7 && rows[row][7] != "passed" {
				return styles.Error.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}
