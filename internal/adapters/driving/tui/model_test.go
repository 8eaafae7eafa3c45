package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

type stubAnswerer struct {
	result *domain.AnswerResult
	err    error
	asked  []string
	ctx    context.Context
}

func (s *stubAnswerer) Answer(ctx context.Context, question string, _ int) (*domain.AnswerResult, error) {
	s.ctx = ctx
	s.asked = append(s.asked, question)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func pressEnter(t *testing.T, m Model, question string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(question)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestUpdate_AsksOnEnter(t *testing.T) {
	answerer := &stubAnswerer{result: &domain.AnswerResult{
		Text:    "Bravo is the second topic.",
		Sources: []domain.SourceRef{{DocumentID: "doc-a", Name: "Doc-A"}},
	}}
	m := New(answerer, 4)

	m, cmd := pressEnter(t, m, "what is bravo?")
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)

	msg := cmd()
	answer, ok := msg.(answerMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"what is bravo?"}, answerer.asked)
	assert.Equal(t, "Bravo is the second topic.", answer.turn.Answer)

	updated, _ := m.Update(msg)
	m = updated.(Model)

	require.Len(t, m.Turns(), 1)
	assert.False(t, m.waiting)

	transcript := m.renderTranscript()
	assert.Contains(t, transcript, "what is bravo?")
	assert.Contains(t, transcript, "Bravo is the second topic.")
	assert.Contains(t, transcript, "Doc-A")
}

func TestUpdate_FailedTurnIsShownAsFailed(t *testing.T) {
	answerer := &stubAnswerer{err: errors.New("generation failed: model overloaded")}
	m := New(answerer, 4)

	m, cmd := pressEnter(t, m, "anything")
	require.NotNil(t, cmd)

	updated, _ := m.Update(cmd())
	m = updated.(Model)

	require.Len(t, m.Turns(), 1)
	turn := m.Turns()[0]
	assert.Empty(t, turn.Answer, "a failed turn never carries a fabricated answer")
	assert.Contains(t, turn.Err, "model overloaded")
	assert.Contains(t, m.renderTranscript(), "Failed:")
}

func TestUpdate_IgnoresEmptyQuestion(t *testing.T) {
	answerer := &stubAnswerer{}
	m := New(answerer, 4)

	m, cmd := pressEnter(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Empty(t, answerer.asked)
}

func TestUpdate_IgnoresEnterWhileWaiting(t *testing.T) {
	answerer := &stubAnswerer{result: &domain.AnswerResult{Text: "ok"}}
	m := New(answerer, 4)

	m, cmd := pressEnter(t, m, "first")
	require.NotNil(t, cmd)

	m, second := pressEnter(t, m, "second")
	assert.Nil(t, second, "a second question must wait for the first answer")
	assert.True(t, m.waiting)
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := New(&stubAnswerer{}, 4)

	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd(), "key %v should quit", key)
	}
}

func TestUpdate_QuitCancelsInFlightAnswer(t *testing.T) {
	answerer := &stubAnswerer{result: &domain.AnswerResult{Text: "late"}}
	m := New(answerer, 4)

	m, cmd := pressEnter(t, m, "slow question")
	require.NotNil(t, cmd)

	_, quitCmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, quitCmd)

	cmd()
	require.NotNil(t, answerer.ctx)
	assert.ErrorIs(t, answerer.ctx.Err(), context.Canceled,
		"quitting must cancel the outbound answer call")
}

func TestView_BeforeFirstResize(t *testing.T) {
	m := New(&stubAnswerer{}, 4)
	assert.Equal(t, "Loading...", m.View())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	assert.NotEqual(t, "Loading...", m.View())
}
