// Package prompt renders ChatML prompts for the completion backend.
package prompt

import (
	"strings"
	"text/template"
)

const ragText = `<|im_start|>system
You are a helpful assistant. Use the following passages to answer the user's question. If they do not contain the answer, say so.
{{range .Passages}}{{chomp .}}
{{end}}<|im_end|>
<|im_start|>user
{{.Question}}<|im_end|>
<|im_start|>assistant
`

const toolsText = `<|im_start|>system
You are a helpful assistant.

# Tools

You may call one or more functions to assist with the user query.

You are provided with function signatures within <tools></tools> XML tags:
<tools>
{{.Tools}}
</tools>

For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:
<tool_call>
{"name": <function-name>, "arguments": <args-json-object>}
</tool_call><|im_end|>
<|im_start|>user
{{.Question}}<|im_end|>
<|im_start|>assistant
`

const plainText = `<|im_start|>system
You are a helpful assistant.<|im_end|>
<|im_start|>user
{{.Question}}<|im_end|>
<|im_start|>assistant
`

var funcs = template.FuncMap{
	"chomp": func(s string) string { return strings.TrimRight(s, "\r\n") },
}

var (
	ragTmpl   = template.Must(template.New("rag").Funcs(funcs).Parse(ragText))
	toolsTmpl = template.Must(template.New("tools").Parse(toolsText))
	plainTmpl = template.Must(template.New("plain").Parse(plainText))
)

// RAG renders a prompt whose system turn carries the retrieved passages, one
// per line, followed by the user's question.
func RAG(passages []string, question string) (string, error) {
	return render(ragTmpl, map[string]any{"Passages": passages, "Question": question})
}

// Tools renders the tool-calling prompt. toolBlock is placed between the
// <tools> tags as-is.
func Tools(toolBlock, question string) (string, error) {
	return render(toolsTmpl, map[string]any{"Tools": strings.TrimRight(toolBlock, "\n"), "Question": question})
}

// Plain renders a prompt with no context.
func Plain(question string) (string, error) {
	return render(plainTmpl, map[string]any{"Question": question})
}

func render(t *template.Template, vars any) (string, error) {
	var buf strings.Builder
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
