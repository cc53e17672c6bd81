package main

import (
	"github.com/spf13/cobra"
)

const rootLongDesc string = `ragchat answers questions about a text corpus.

The corpus is a plain text file with one passage per line. On first use every
line is embedded and the vectors are saved as an index file next to it; later
runs load that file instead of re-embedding. Each question retrieves the most
similar lines and hands them to an OpenAI-compatible completion server.

  ragchat index            Build or load the index and report on it
  ragchat search <query>   Print the passages closest to a query
  ragchat chat             Ask questions about the corpus
  ragchat tools            Try the tool-calling prompt format`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ragchat",
		Short:         "Retrieval-augmented chat over a line-delimited corpus",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./config.yaml, then ~/.config/ragchat/config.yaml)")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}
