package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragchat/internal/summarizer"
)

const indexLongDesc string = `Build or load the vector index for the configured corpus.

Without flags an existing index file is loaded and checked against the corpus;
a missing one is built and saved. --rebuild always re-embeds the corpus and
overwrites the index file, which is what to do after editing the corpus.
A few representative passages are printed as an overview of the corpus.

Example:
  ragchat index
  ragchat index --rebuild --config facts.yaml`

func newIndexCmd() *cobra.Command {
	var (
		rebuild bool
		summary int
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or load the vector index",
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			svc, err := a.retrieval(cmd.Context(), rebuild)
			if err != nil {
				return err
			}
			verb := "Loaded"
			if svc.Built() {
				verb = "Built"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s index %s: %d passages from %s\n", verb, a.cfg.Index.Path, svc.Len(), a.cfg.Corpus.Path)

			passages := svc.Passages()
			if picks := summarizer.Representative(passages, summary); len(picks) > 0 {
				fmt.Fprintln(out, "Representative passages:")
				for _, pos := range picks {
					fmt.Fprintf(out, "  %s %s\n", lineStyle.Render(fmt.Sprintf("line %d", pos+1)), strings.TrimRight(passages[pos], "\r\n"))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Re-embed the corpus even if an index file exists")
	cmd.Flags().IntVar(&summary, "summary", 3, "Representative passages to print (0 to skip)")

	return cmd
}
