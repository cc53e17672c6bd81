package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/service"
)

type stubAsker struct {
	answer service.Answer
	err    error
	asked  []string
}

func (s *stubAsker) Ask(_ context.Context, q string) (service.Answer, error) {
	s.asked = append(s.asked, q)
	return s.answer, s.err
}

func sized(t *testing.T, asker Asker) Model {
	t.Helper()
	m := New(context.Background(), asker, "ragchat", []string{"exit", "quit"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_AskRoundTrip(t *testing.T) {
	asker := &stubAsker{answer: service.Answer{
		Text:    "The sky is blue.",
		Sources: []domain.SearchResult{{Position: 0, Text: "The sky is blue.\n", Score: 0.7}},
	}}
	m := sized(t, asker)

	m, cmd := submit(t, m, "  What color is the sky?  ")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"What color is the sky?"}, asker.asked)
	require.Len(t, m.turns, 1)
	assert.Equal(t, "The sky is blue.", m.turns[0].answer)
	assert.Len(t, m.sources, 1)

	view := m.View()
	assert.Contains(t, view, "What color is the sky?")
	assert.Contains(t, view, "The sky is blue.")
	assert.Contains(t, view, "Source 1/1")
}

func TestModel_AskErrorEndsSession(t *testing.T) {
	m := sized(t, &stubAsker{err: domain.ErrInvalidDimension})
	m, cmd := submit(t, m, "hello")
	next, quit := m.Update(cmd())
	m = next.(Model)

	require.NotNil(t, quit)
	assert.Equal(t, tea.Quit(), quit())
	assert.ErrorIs(t, m.Err(), domain.ErrInvalidDimension)
	assert.Contains(t, m.status, "invalid vector dimension")
	assert.False(t, m.busy)
}

func TestModel_NoErrAfterAnswer(t *testing.T) {
	m := sized(t, &stubAsker{answer: service.Answer{Text: "ok"}})
	m, cmd := submit(t, m, "hello")
	next, after := m.Update(cmd())
	assert.Nil(t, after)
	assert.NoError(t, next.(Model).Err())
}

func TestModel_IgnoresBlankAndBusy(t *testing.T) {
	asker := &stubAsker{}
	m := sized(t, asker)

	m, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, m.turns)

	m, cmd = submit(t, m, "first")
	require.NotNil(t, cmd)
	_, cmd = submit(t, m, "second")
	assert.Nil(t, cmd, "no new question while one is in flight")
}

func TestModel_ExitKeywordQuits(t *testing.T) {
	m := sized(t, &stubAsker{})
	_, cmd := submit(t, m, "QUIT")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_CycleSources(t *testing.T) {
	m := sized(t, &stubAsker{})
	m.sources = []domain.SearchResult{{Position: 1}, {Position: 4}, {Position: 9}}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, next.(Model).cursor)
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 2, next.(Model).cursor)
}

func TestBestSentence(t *testing.T) {
	sentences := splitSentences("Paris is in France. The sky is blue! Water is wet")
	require.Equal(t, []string{"Paris is in France.", "The sky is blue!", "Water is wet"}, sentences)
	assert.Equal(t, 1, bestSentence(sentences, "what colour is the sky"))
	assert.Equal(t, 0, bestSentence(sentences, "capital of France"))
	assert.Equal(t, -1, bestSentence(sentences, "bananas"))
}
