package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"ragchat/internal/domain"
	"ragchat/internal/logging"
	"ragchat/internal/prompt"
	"ragchat/internal/tools"
)

// ChatMode selects how a question is turned into a prompt.
type ChatMode string

const (
	// ChatModeRAG retrieves passages and answers from them.
	ChatModeRAG ChatMode = "rag"
	// ChatModeTools offers the tool registry and reports the calls the model makes.
	ChatModeTools ChatMode = "tools"
	// ChatModePlain sends the question with no context.
	ChatModePlain ChatMode = "plain"
)

// ChatOptions configures NewChatService.
type ChatOptions struct {
	Mode      ChatMode
	Retriever domain.Retriever
	Completer domain.Completer
	Tools     *tools.Registry
	TopK      int
	MaxTokens int
	Logger    *log.Logger
}

// Answer is the result of one question.
type Answer struct {
	Prompt  string
	Text    string
	Sources []domain.SearchResult
	Calls   []tools.Call
}

// ChatService turns questions into prompts and prompts into answers.
type ChatService struct {
	mode      ChatMode
	retriever domain.Retriever
	completer domain.Completer
	tools     *tools.Registry
	toolBlock string
	topK      int
	maxTokens int
	log       *log.Logger
}

// NewChatService checks that the collaborators the mode needs are present.
func NewChatService(opts ChatOptions) (*ChatService, error) {
	if opts.Completer == nil {
		return nil, fmt.Errorf("%w: completer is required", domain.ErrInvalidArgument)
	}
	if opts.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_tokens must be positive, got %d", domain.ErrInvalidArgument, opts.MaxTokens)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	s := &ChatService{
		mode:      opts.Mode,
		retriever: opts.Retriever,
		completer: opts.Completer,
		tools:     opts.Tools,
		topK:      opts.TopK,
		maxTokens: opts.MaxTokens,
		log:       opts.Logger,
	}
	switch opts.Mode {
	case ChatModeRAG:
		if opts.Retriever == nil {
			return nil, fmt.Errorf("%w: rag mode needs a retriever", domain.ErrInvalidArgument)
		}
		if opts.TopK <= 0 {
			return nil, fmt.Errorf("%w: top_k must be at least 1, got %d", domain.ErrInvalidArgument, opts.TopK)
		}
	case ChatModeTools:
		if s.tools == nil {
			s.tools = tools.DefaultRegistry()
		}
		block, err := s.tools.PromptBlock()
		if err != nil {
			return nil, err
		}
		s.toolBlock = block
	case ChatModePlain:
	default:
		return nil, fmt.Errorf("%w: unknown chat mode %q", domain.ErrInvalidArgument, opts.Mode)
	}
	return s, nil
}

// Mode returns the configured chat mode.
func (s *ChatService) Mode() ChatMode { return s.mode }

// Ask answers one question. A tools-mode reply whose tool calls cannot be
// parsed is still returned, with no calls.
func (s *ChatService) Ask(ctx context.Context, question string) (Answer, error) {
	var (
		ans Answer
		err error
	)
	switch s.mode {
	case ChatModeRAG:
		ans.Sources, err = s.retriever.SearchResults(ctx, question, s.topK)
		if err != nil {
			return Answer{}, err
		}
		passages := make([]string, len(ans.Sources))
		for i, r := range ans.Sources {
			passages[i] = r.Text
			s.log.Debug("retrieved", "position", r.Position, "score", r.Score)
		}
		ans.Prompt, err = prompt.RAG(passages, question)
	case ChatModeTools:
		ans.Prompt, err = prompt.Tools(s.toolBlock, question)
	default:
		ans.Prompt, err = prompt.Plain(question)
	}
	if err != nil {
		return Answer{}, fmt.Errorf("rendering prompt: %w", err)
	}

	ans.Text, err = s.completer.Complete(ctx, ans.Prompt, s.maxTokens)
	if err != nil {
		return Answer{}, err
	}

	if s.mode == ChatModeTools {
		calls, err := tools.ParseCalls(ans.Text)
		if err != nil {
			s.log.Warn("ignoring malformed tool call", "err", err)
			return ans, nil
		}
		for _, c := range calls {
			if !s.tools.Has(c.Name) {
				s.log.Warn("model called an unknown tool", "name", c.Name)
			}
		}
		ans.Calls = calls
	}
	return ans, nil
}
