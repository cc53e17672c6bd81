// Package tools describes the functions offered to the model in the
// tool-calling prompt and parses the calls it replies with. Calls are reported,
// never executed.
package tools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"ragchat/internal/domain"
)

// Call is one <tool_call> the model asked for.
type Call struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Registry is an ordered set of tool definitions.
type Registry struct {
	tools []openai.Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// DefaultRegistry holds the get_weather demo tool.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(openai.FunctionDefinition{
		Name:        "get_weather",
		Description: "Get the current weather for a city",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"city": {Type: jsonschema.String, Description: "The city name"},
			},
			Required: []string{"city"},
		},
	})
	return r
}

// Register adds a function tool. Names must be unique and non-empty.
func (r *Registry) Register(fn openai.FunctionDefinition) error {
	if fn.Name == "" {
		return fmt.Errorf("%w: tool name is required", domain.ErrInvalidArgument)
	}
	if r.Has(fn.Name) {
		return fmt.Errorf("%w: tool %q already registered", domain.ErrInvalidArgument, fn.Name)
	}
	r.tools = append(r.tools, openai.Tool{Type: openai.ToolTypeFunction, Function: &fn})
	return nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	for _, t := range r.tools {
		if t.Function != nil && t.Function.Name == name {
			return true
		}
	}
	return false
}

// PromptBlock renders one JSON object per tool, one per line, for the <tools>
// section of the prompt.
func (r *Registry) PromptBlock() (string, error) {
	var b strings.Builder
	for _, t := range r.tools {
		data, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("encoding tool %s: %w", t.Function.Name, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

var callRe = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

// ParseCalls extracts every <tool_call> body from a model reply, in order. A
// reply without tool calls yields none.
func ParseCalls(reply string) ([]Call, error) {
	var calls []Call
	for i, m := range callRe.FindAllStringSubmatch(reply, -1) {
		body := strings.TrimSpace(m[1])
		var c Call
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("%w: tool call %d: %v", domain.ErrInvalidArgument, i, err)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("%w: tool call %d has no name", domain.ErrInvalidArgument, i)
		}
		if len(c.Arguments) == 0 || string(c.Arguments) == "null" {
			c.Arguments = json.RawMessage(`{}`)
		}
		calls = append(calls, c)
	}
	return calls, nil
}

// String formats the call as name(arguments).
func (c Call) String() string {
	return c.Name + "(" + string(c.Arguments) + ")"
}
