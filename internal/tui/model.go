// Package tui is the Bubble Tea chat front end: a scrolling transcript, the
// passages the last answer drew on, and an input line.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/domain"
	"ragchat/internal/service"
)

// Asker is the TUI-facing subset of the chat service.
type Asker interface {
	Ask(ctx context.Context, question string) (service.Answer, error)
}

type turn struct {
	question string
	answer   string
	err      error
}

type answerMsg struct {
	answer service.Answer
	err    error
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx          context.Context
	asker        Asker
	title        string
	exitKeywords []string
	input        textinput.Model
	viewport     viewport.Model
	turns        []turn
	sources      []domain.SearchResult
	cursor       int
	status       string
	busy         bool
	ready        bool
	lastQuery    string
	err          error
}

// New creates a chat model. Typing one of exitKeywords quits.
func New(ctx context.Context, asker Asker, title string, exitKeywords []string) Model {
	ti := textinput.New()
	ti.Prompt = "User: "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:          ctx,
		asker:        asker,
		title:        title,
		exitKeywords: exitKeywords,
		input:        ti,
		viewport:     viewport.New(0, 0),
		status:       "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, sh := sourceBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + sourceLines + sh + 1 + ih + 1 // header, sources, input, status
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		last := &m.turns[len(m.turns)-1]
		if msg.err != nil {
			last.err = msg.err
			m.err = msg.err
			m.status = "Error: " + msg.err.Error()
			m.refresh()
			return m, tea.Quit
		}
		last.answer = msg.answer.Text
		m.sources = msg.answer.Sources
		m.cursor = 0
		m.status = fmt.Sprintf("Answered from %d passage(s).", len(m.sources))
		if n := len(msg.answer.Calls); n > 0 {
			m.status = fmt.Sprintf("Model requested %d tool call(s).", n)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			for _, k := range m.exitKeywords {
				if strings.EqualFold(q, k) {
					return m, tea.Quit
				}
			}
			m.input.SetValue("")
			m.turns = append(m.turns, turn{question: q})
			m.lastQuery = q
			m.busy = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "tab":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.sources)
				return m, nil
			}
		case "shift+tab":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.sources)) % len(m.sources)
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.asker.Ask(m.ctx, q)
		return answerMsg{answer: ans, err: err}
	}
}

// View renders the header, transcript, current source, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	sources := sourceBoxStyle.Width(m.viewport.Width).Render(m.renderCurrentSource())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + sources + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No messages yet."
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width))
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(wrap.Render(userStyle.Render("User: ") + t.question))
		b.WriteString("\n")
		switch {
		case t.err != nil:
			b.WriteString(wrap.Render(errorStyle.Render("Error: " + t.err.Error())))
		case t.answer == "" && i == len(m.turns)-1 && m.busy:
			b.WriteString(aiStyle.Render("AI: ") + "...")
		default:
			b.WriteString(wrap.Render(aiStyle.Render("AI: ") + t.answer))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCurrentSource() string {
	if len(m.sources) == 0 {
		return "No sources."
	}
	r := m.sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  line %d  score=%.3f  (tab to cycle)", m.cursor+1, len(m.sources), r.Position+1, r.Score)
	return title + "\n" + highlightBestSentence(strings.TrimRight(r.Text, "\r\n"), m.lastQuery)
}

const sourceLines = 3

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sourceBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Height(sourceLines)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	aiStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	sentenceRe         = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := splitSentences(text)
	best := bestSentence(sentences, query)
	for i := range sentences {
		if i == best {
			sentences[i] = highlightStyle.Render(sentences[i])
		}
	}
	return strings.Join(sentences, " ")
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}

// bestSentence returns the index of the sentence sharing the most distinct
// words with query, or -1 when nothing overlaps.
func bestSentence(sentences []string, query string) int {
	qTokens := toTokenSet(query)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
