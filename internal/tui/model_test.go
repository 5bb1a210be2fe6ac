package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkulima/agrichat/internal/chat"
	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/models"
	"github.com/mkulima/agrichat/internal/render"
)

// fakeAnswerer answers every question once release is closed
type fakeAnswerer struct {
	release chan struct{}
	answer  string
	err     error
}

func (f *fakeAnswerer) HasCredential() bool { return true }

func (f *fakeAnswerer) GenerateAnswer(ctx context.Context, system, query string) (string, error) {
	if f.release != nil {
		<-f.release
	}
	return f.answer, f.err
}

func newTestModel(t *testing.T, answerer chat.Answerer) Model {
	t.Helper()
	session := chat.NewSession(answerer)
	m := NewChatModel(context.Background(), session, models.DefaultModel.Name, render.DefaultOptions().WithStyle("notty"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.textarea.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

// findSettled runs cmd, unpacking batches, and returns the settled message if
// one is produced. Tick commands are skipped so the test does not wait on
// timers.
func findSettled(cmd tea.Cmd) (turnSettledMsg, bool) {
	if cmd == nil {
		return turnSettledMsg{}, false
	}
	switch msg := cmd().(type) {
	case turnSettledMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if settled, ok := findSettled(c); ok {
				return settled, true
			}
		}
	}
	return turnSettledMsg{}, false
}

func TestViewBeforeReady(t *testing.T) {
	m := NewChatModel(context.Background(), chat.NewSession(&fakeAnswerer{}), "m", render.DefaultOptions())
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("expected initializing view before the first window size")
	}
}

func TestWelcomeScreen(t *testing.T) {
	m := newTestModel(t, &fakeAnswerer{})

	view := m.View()
	if !strings.Contains(view, "Welcome to MkulimaMkononi") {
		t.Errorf("expected welcome screen, got:\n%s", view)
	}
	if !strings.Contains(view, models.DefaultModel.Name) {
		t.Error("expected model name in header")
	}
}

func TestSubmitBlankInputIsIgnored(t *testing.T) {
	m := newTestModel(t, &fakeAnswerer{})

	m, cmd := typeAndSend(t, m, "   ")
	if cmd != nil {
		t.Error("expected no command for blank input")
	}
	if m.session.Len() != 0 {
		t.Errorf("log length = %d, want 0", m.session.Len())
	}
}

func TestSubmitShowsPlaceholderAndClearsInput(t *testing.T) {
	answerer := &fakeAnswerer{release: make(chan struct{}), answer: "Plant after the long rains begin."}
	m := newTestModel(t, answerer)

	m, cmd := typeAndSend(t, m, "  When should I plant maize?  ")
	if cmd == nil {
		t.Fatal("expected a command after submitting")
	}
	if m.textarea.Value() != "" {
		t.Errorf("textarea = %q, want empty", m.textarea.Value())
	}

	entries := m.session.Entries()
	if len(entries) != 2 {
		t.Fatalf("log length = %d, want 2", len(entries))
	}
	if entries[0].Message.Text != "When should I plant maize?" {
		t.Errorf("user text = %q", entries[0].Message.Text)
	}
	if !entries[1].Pending {
		t.Error("expected placeholder entry")
	}
	if !strings.Contains(m.viewport.View(), models.PlaceholderText) {
		t.Errorf("expected placeholder in view:\n%s", m.viewport.View())
	}

	settledCh := make(chan turnSettledMsg, 1)
	go func() {
		settled, _ := findSettled(cmd)
		settledCh <- settled
	}()
	close(answerer.release)

	var settled turnSettledMsg
	select {
	case settled = <-settledCh:
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not settle")
	}
	if settled.reply.Text != "Plant after the long rains begin." {
		t.Errorf("reply = %q", settled.reply.Text)
	}

	updated, _ := m.Update(settled)
	m = updated.(Model)

	if m.session.Pending() != 0 {
		t.Error("placeholder should be gone")
	}
	view := m.viewport.View()
	if strings.Contains(view, models.PlaceholderText) {
		t.Error("placeholder still rendered after reply")
	}
	if !strings.Contains(view, "long rains") {
		t.Errorf("reply missing from view:\n%s", view)
	}
}

func TestSubmitErrorShowsFixedText(t *testing.T) {
	answerer := &fakeAnswerer{err: apierrors.NewAPIError(500, "https://example.test", "boom")}
	m := newTestModel(t, answerer)

	m, cmd := typeAndSend(t, m, "Will it rain in Ruiru?")
	settled, ok := findSettled(cmd)
	if !ok {
		t.Fatal("expected settled message")
	}
	if settled.reply.Text != models.ReplyHTTPError.Text() {
		t.Errorf("reply = %q", settled.reply.Text)
	}

	updated, _ := m.Update(settled)
	m = updated.(Model)
	if !strings.Contains(m.viewport.View(), "could not answer") {
		t.Errorf("error text missing from view:\n%s", m.viewport.View())
	}
}

func TestInputUsableWhileAwaiting(t *testing.T) {
	answerer := &fakeAnswerer{release: make(chan struct{}), answer: "ok"}
	defer close(answerer.release)
	m := newTestModel(t, answerer)

	m, _ = typeAndSend(t, m, "first")
	m, _ = typeAndSend(t, m, "second")

	if got := m.session.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "answering 2 questions") {
		t.Error("expected loading indicator for two questions")
	}
}

func TestExitCommands(t *testing.T) {
	for _, input := range []string{"exit", "quit", "/exit", "/quit"} {
		t.Run(input, func(t *testing.T) {
			m := newTestModel(t, &fakeAnswerer{})
			m, cmd := typeAndSend(t, m, input)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
			if m.session.Len() != 0 {
				t.Error("exit command must not be submitted")
			}
		})
	}
}

func TestEscQuits(t *testing.T) {
	m := newTestModel(t, &fakeAnswerer{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAnimationStopsWhenIdle(t *testing.T) {
	m := newTestModel(t, &fakeAnswerer{})
	m.animating = true

	updated, _ := m.Update(animationTickMsg(time.Now()))
	m = updated.(Model)
	if m.animating {
		t.Error("animation should stop with nothing pending")
	}
}
