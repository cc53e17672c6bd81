package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	rankStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const searchLongDesc string = `Print the corpus passages most similar to a query.

Each result shows its rank, its line number in the corpus and its similarity
score, best first. No completion server is needed.

Example:
  ragchat search "what color is the sky"
  ragchat search "boiling point" --top-k 5`

func newSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print the passages closest to a query",
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Retrieval.TopK
			}
			svc, err := a.retrieval(cmd.Context(), false)
			if err != nil {
				return err
			}
			results, err := svc.SearchResults(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%s %s %s  %s\n",
					rankStyle.Render(fmt.Sprintf("%d.", i+1)),
					lineStyle.Render(fmt.Sprintf("line %d", r.Position+1)),
					scoreStyle.Render(fmt.Sprintf("(%.4f)", r.Score)),
					strings.TrimRight(r.Text, "\r\n"),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Number of passages to return (default from config)")

	return cmd
}
