package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/logging"
)

type fakeCompleter struct {
	reply     string
	err       error
	prompts   []string
	maxTokens int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.maxTokens = maxTokens
	return f.reply, f.err
}

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
	topK    int
}

func (f *fakeRetriever) SearchResults(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	f.topK = topK
	return f.results, f.err
}

func TestAsk_RAG(t *testing.T) {
	ctx := context.Background()
	svc, err := NewRetrievalService(ctx, newOpts(t, skyCorpus))
	require.NoError(t, err)
	comp := &fakeCompleter{reply: "The sky is blue."}

	chat, err := NewChatService(ChatOptions{Mode: ChatModeRAG, Retriever: svc, Completer: comp, TopK: 1, MaxTokens: 128})
	require.NoError(t, err)

	ans, err := chat.Ask(ctx, "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", ans.Text)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, 0, ans.Sources[0].Position)
	assert.Contains(t, ans.Prompt, "The sky is blue.\n<|im_end|>")
	assert.Contains(t, ans.Prompt, "<|im_start|>user\nWhat color is the sky?<|im_end|>")
	assert.Equal(t, []string{ans.Prompt}, comp.prompts)
	assert.Equal(t, 128, comp.maxTokens)
	assert.Empty(t, ans.Calls)
}

func TestAsk_RAGRetrievalError(t *testing.T) {
	ret := &fakeRetriever{err: domain.ErrInvalidDimension}
	comp := &fakeCompleter{}
	chat, err := NewChatService(ChatOptions{Mode: ChatModeRAG, Retriever: ret, Completer: comp, TopK: 3, MaxTokens: 16})
	require.NoError(t, err)

	_, err = chat.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)
	assert.Empty(t, comp.prompts, "no completion after a failed retrieval")
	assert.Equal(t, 3, ret.topK)
}

func TestAsk_Tools(t *testing.T) {
	comp := &fakeCompleter{reply: "<tool_call>\n{\"name\": \"get_weather\", \"arguments\": {\"city\": \"Paris\"}}\n</tool_call>"}
	chat, err := NewChatService(ChatOptions{Mode: ChatModeTools, Completer: comp, MaxTokens: 10000})
	require.NoError(t, err)

	ans, err := chat.Ask(context.Background(), "What's the weather in Paris?")
	require.NoError(t, err)
	assert.Contains(t, ans.Prompt, `"name":"get_weather"`)
	assert.Contains(t, ans.Prompt, "<|im_start|>user\nWhat's the weather in Paris?<|im_end|>")
	require.Len(t, ans.Calls, 1)
	assert.Equal(t, "get_weather", ans.Calls[0].Name)
	assert.JSONEq(t, `{"city": "Paris"}`, string(ans.Calls[0].Arguments))
	assert.Empty(t, ans.Sources)
}

func TestAsk_ToolsMalformedReplyKept(t *testing.T) {
	var buf bytes.Buffer
	comp := &fakeCompleter{reply: "<tool_call>{oops</tool_call>"}
	chat, err := NewChatService(ChatOptions{Mode: ChatModeTools, Completer: comp, MaxTokens: 16, Logger: logging.New(&buf, "info", false)})
	require.NoError(t, err)

	ans, err := chat.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "<tool_call>{oops</tool_call>", ans.Text)
	assert.Empty(t, ans.Calls)
	assert.Contains(t, buf.String(), "malformed tool call")
}

func TestAsk_Plain(t *testing.T) {
	comp := &fakeCompleter{reply: "Hello!"}
	chat, err := NewChatService(ChatOptions{Mode: ChatModePlain, Completer: comp, MaxTokens: 16})
	require.NoError(t, err)

	ans, err := chat.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", ans.Text)
	assert.NotContains(t, ans.Prompt, "<tools>")
	assert.Equal(t, ChatModePlain, chat.Mode())
}

func TestAsk_CompletionError(t *testing.T) {
	boom := errors.New("boom")
	comp := &fakeCompleter{err: boom}
	chat, err := NewChatService(ChatOptions{Mode: ChatModePlain, Completer: comp, MaxTokens: 16})
	require.NoError(t, err)

	_, err = chat.Ask(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
}

func TestNewChatService_Validation(t *testing.T) {
	comp := &fakeCompleter{}
	for name, opts := range map[string]ChatOptions{
		"no completer":  {Mode: ChatModePlain, MaxTokens: 1},
		"no max tokens": {Mode: ChatModePlain, Completer: comp},
		"no retriever":  {Mode: ChatModeRAG, Completer: comp, MaxTokens: 1, TopK: 1},
		"bad top k":     {Mode: ChatModeRAG, Retriever: &fakeRetriever{}, Completer: comp, MaxTokens: 1},
		"unknown mode":  {Mode: "poetry", Completer: comp, MaxTokens: 1},
	} {
		_, err := NewChatService(opts)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, name)
	}
}
