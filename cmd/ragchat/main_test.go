package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/service"
)

const corpusText = "The sky is blue.\nWater boils at 100 degrees.\nParis is the capital of France.\n"

type fixture struct {
	dir    string
	config string
	index  string
}

func newFixture(t *testing.T, format, chatURL string) fixture {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpus, []byte(corpusText), 0o644))
	index := filepath.Join(dir, "data", "index."+format)
	cfg := fmt.Sprintf(`corpus:
  path: %s
index:
  path: %s
  format: %s
embedder:
  type: hashing
chat:
  base_url: %s
  model: test-model
  max_tokens: 64
log:
  level: error
`, corpus, index, format, chatURL)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return fixture{dir: dir, config: path, index: index}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexCmd(t *testing.T) {
	for _, format := range []string{"gob", "sqlite"} {
		t.Run(format, func(t *testing.T) {
			f := newFixture(t, format, "http://127.0.0.1:1/v1")

			out, err := run(t, "", "index", "--config", f.config)
			require.NoError(t, err)
			assert.Contains(t, out, "Built index")
			assert.Contains(t, out, "3 passages")
			assert.Contains(t, out, "Representative passages:")
			_, err = os.Stat(f.index)
			require.NoError(t, err)

			out, err = run(t, "", "index", "--summary", "0", "--config", f.config)
			require.NoError(t, err)
			assert.Contains(t, out, "Loaded index")
			assert.NotContains(t, out, "Representative")

			out, err = run(t, "", "index", "--rebuild", "--config", f.config)
			require.NoError(t, err)
			assert.Contains(t, out, "Built index")
		})
	}
}

func TestIndexCmd_StaleCorpus(t *testing.T) {
	f := newFixture(t, "gob", "http://127.0.0.1:1/v1")
	_, err := run(t, "", "index", "--config", f.config)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "corpus.txt"), []byte("Something else entirely.\n"), 0o644))
	_, err = run(t, "", "index", "--config", f.config)
	assert.ErrorIs(t, err, domain.ErrStaleArtifact)
}

func TestSearchCmd(t *testing.T) {
	f := newFixture(t, "gob", "http://127.0.0.1:1/v1")

	out, err := run(t, "", "search", "--config", f.config, "--top-k", "1", "What color is the sky?")
	require.NoError(t, err)
	assert.Contains(t, out, "1.")
	assert.Contains(t, out, "line 1")
	assert.Contains(t, out, "The sky is blue.")
	assert.NotContains(t, out, "Paris")

	_, err = run(t, "", "search", "--config", f.config, "--top-k", "0", "sky")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

type promptLog struct {
	mu      sync.Mutex
	prompts []string
}

func (p *promptLog) add(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, s)
}

func (p *promptLog) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.prompts
	p.prompts = nil
	return out
}

func completionServer(t *testing.T, reply string, rec *promptLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		rec.add(req.Prompt)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"text": reply, "index": 0}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatCmd(t *testing.T) {
	var rec promptLog
	srv := completionServer(t, "It is blue.", &rec)
	f := newFixture(t, "gob", srv.URL+"/v1")

	out, err := run(t, "What color is the sky?\n\nEXIT\nnot asked\n", "chat", "--config", f.config, "--top-k", "1")
	require.NoError(t, err)
	assert.Equal(t, "User: AI: It is blue.\nUser: User: ", out)
	prompts := rec.all()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "The sky is blue.\n<|im_end|>")
	assert.Contains(t, prompts[0], "<|im_start|>user\nWhat color is the sky?<|im_end|>")
}

func TestToolsCmd(t *testing.T) {
	var rec promptLog
	srv := completionServer(t, `<tool_call>{"name": "get_weather", "arguments": {"city": "Paris"}}</tool_call>`, &rec)
	f := newFixture(t, "gob", srv.URL+"/v1")

	out, err := run(t, "Weather in Paris?\n", "tools", "--config", f.config)
	require.NoError(t, err)
	assert.Contains(t, out, `tool call: get_weather({"city": "Paris"})`)
	prompts := rec.all()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "<tools>")
	_, statErr := os.Stat(f.index)
	assert.True(t, os.IsNotExist(statErr), "tools mode does not touch the index")

	_, err = run(t, "hello\n", "tools", "--plain", "--config", f.config)
	require.NoError(t, err)
	prompts = rec.all()
	require.Len(t, prompts, 1)
	assert.NotContains(t, prompts[0], "<tools>")
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: {format: csv}\n"), 0o644))
	_, err := run(t, "", "index", "--config", path)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTUITitle(t *testing.T) {
	assert.Equal(t, "ragchat", tuiTitle(service.ChatModeRAG))
	assert.Equal(t, "ragchat tools", tuiTitle(service.ChatModeTools))
}
