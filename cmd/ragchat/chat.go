package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragchat/internal/repl"
	"ragchat/internal/service"
	"ragchat/internal/tui"
)

const chatLongDesc string = `Ask questions about the corpus.

Each question retrieves the closest passages, places them in the system turn
of a ChatML prompt and sends it to the configured completion server. Type
exit or quit (or send EOF) to leave. --tui opens a full-screen chat view
that also shows the passages each answer drew on.

Example:
  ragchat chat
  ragchat chat --tui --top-k 5`

func newChatCmd() *cobra.Command {
	var (
		topK   int
		useTUI bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the corpus",
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Retrieval.TopK
			}
			ret, err := a.retrieval(cmd.Context(), false)
			if err != nil {
				return err
			}
			comp, err := a.completer()
			if err != nil {
				return err
			}
			chat, err := service.NewChatService(service.ChatOptions{
				Mode:      service.ChatModeRAG,
				Retriever: ret,
				Completer: comp,
				TopK:      topK,
				MaxTokens: a.cfg.Chat.MaxTokens,
				Logger:    a.log,
			})
			if err != nil {
				return err
			}
			return a.converse(cmd, chat, useTUI)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Passages retrieved per question (default from config)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Use the full-screen chat view")

	return cmd
}

const toolsLongDesc string = `Try the tool-calling prompt format.

The system turn lists the available function signatures inside <tools> tags
and asks the model to reply with <tool_call> blocks. Replies are printed as
received, followed by any tool calls parsed from them. Tools are never run.
No retrieval happens in this mode; --plain drops the tool list as well.

Example:
  ragchat tools
  ragchat tools --plain`

func newToolsCmd() *cobra.Command {
	var (
		plain  bool
		useTUI bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Chat using the tool-calling prompt format",
		Long:  toolsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			comp, err := a.completer()
			if err != nil {
				return err
			}
			mode := service.ChatModeTools
			if plain {
				mode = service.ChatModePlain
			}
			chat, err := service.NewChatService(service.ChatOptions{
				Mode:      mode,
				Completer: comp,
				MaxTokens: a.cfg.Chat.MaxTokens,
				Logger:    a.log,
			})
			if err != nil {
				return err
			}
			return a.converse(cmd, chat, useTUI)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Send the question without the tool list")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Use the full-screen chat view")

	return cmd
}

func (a *app) converse(cmd *cobra.Command, chat *service.ChatService, useTUI bool) error {
	ctx := cmd.Context()
	if useTUI {
		m := tui.New(ctx, chat, tuiTitle(chat.Mode()), a.cfg.REPL.ExitKeywords)
		final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx),
			tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout())).Run()
		if err != nil {
			return err
		}
		if fm, ok := final.(tui.Model); ok {
			return fm.Err()
		}
		return nil
	}
	handler := func(ctx context.Context, line string) (string, error) {
		ans, err := chat.Ask(ctx, line)
		if err != nil {
			return "", err
		}
		return formatReply(ans), nil
	}
	return repl.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), handler, a.cfg.REPL.ExitKeywords...)
}

func tuiTitle(mode service.ChatMode) string {
	switch mode {
	case service.ChatModeRAG:
		return "ragchat"
	default:
		return "ragchat " + string(mode)
	}
}

func formatReply(ans service.Answer) string {
	if len(ans.Calls) == 0 {
		return ans.Text
	}
	var b strings.Builder
	b.WriteString(ans.Text)
	for _, c := range ans.Calls {
		fmt.Fprintf(&b, "\ntool call: %s", c)
	}
	return b.String()
}
