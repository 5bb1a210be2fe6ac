package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/models"
	"github.com/mkulima/agrichat/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#2d6a4f"),
	lipgloss.Color("#40916c"),
	lipgloss.Color("#52b788"),
	lipgloss.Color("#74c69d"),
	lipgloss.Color("#95d5b2"),
	lipgloss.Color("#b7e4c7"),
	lipgloss.Color("#e9c46a"),
	lipgloss.Color("#f4a261"),
}

var (
	colorText     = lipgloss.Color("#dcdccc")
	colorTextDim  = lipgloss.Color("#8a8f7a")
	colorTextMute = lipgloss.Color("#55604f")
	colorSuccess  = lipgloss.Color("#8fbf5a")
	colorPrimary  = lipgloss.Color("#8fbf5a")
	colorWarning  = lipgloss.Color("#e0b05a")
	colorError    = lipgloss.Color("#e06c5a")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	questionStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)
)

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner drawing on out
func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinIdx := s.frame % len(chars)
	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 16
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + s.frame) % len(gradientColors)
		charIdx := (i + s.frame/2) % len(barChars)
		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	fmt.Fprintf(s.out, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(s.out, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError(message string) {
	s.stopOnce()
	<-s.done

	cross := lipgloss.NewStyle().Foreground(colorError).Bold(true).Render("✗")
	msg := lipgloss.NewStyle().Foreground(colorError).Render(message)
	fmt.Fprintf(s.out, "%s %s\n", cross, msg)
}

// replyError returns an error for replies that carry a fixed failure text,
// so scripts see a non-zero exit status
func replyError(reply models.Message) error {
	if kind, ok := models.FailureKind(reply.Text); ok {
		return fmt.Errorf("no answer (%s)", kind)
	}
	return nil
}

// runQuery answers a single question and outputs the reply.
// With --raw only the reply text is printed, without decoration.
func (a *app) runQuery(cmd *cobra.Command, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question cannot be empty")
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	raw := a.opts.raw

	session, answerer, release, err := a.newSession(a.log)
	if err != nil {
		return err
	}
	defer release()

	// Without a key the session answers with its fixed unavailable text;
	// the command still fails so scripts notice.
	missingKey := !answerer.HasCredential()

	if a.cfg.Verbose && !raw {
		fmt.Fprintf(stderr, "[verbose] Model: %s\n", a.model().Name)
	}

	var spin *spinner
	if !raw {
		spin = newSpinner(stderr, "Asking MkulimaMkononi")
		spin.start()
	}

	startTime := time.Now()
	turn, _ := session.Begin(question)
	reply := turn.Await(cmd.Context())
	requestDuration := time.Since(startTime)

	replyErr := replyError(reply)
	if !raw {
		if replyErr != nil {
			spin.stopWithError("No answer")
		} else {
			spin.stopWithSuccess("Done")
		}
	}

	if a.cfg.Verbose && !raw {
		fmt.Fprintf(stderr, "[verbose] Request took %s\n", requestDuration.Round(time.Millisecond))
	}

	if err := a.deliver(stdout, stderr, reply.Text, func(w io.Writer) {
		a.printReply(w, reply.Text)
	}); err != nil {
		return err
	}
	if missingKey {
		return apierrors.ErrMissingAPIKey
	}
	return replyErr
}

// runBatch answers every non-blank line of path as its own question
func (a *app) runBatch(cmd *cobra.Command, path string) error {
	questions, err := readQuestions(path)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", path)
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	raw := a.opts.raw

	session, answerer, release, err := a.newSession(a.log)
	if err != nil {
		return err
	}
	defer release()

	// Without a key the session answers with its fixed unavailable text;
	// the command still fails so scripts notice.
	missingKey := !answerer.HasCredential()

	var spin *spinner
	if !raw {
		spin = newSpinner(stderr, fmt.Sprintf("Answering %d questions", len(questions)))
		spin.start()
	}

	replies := session.SubmitAll(cmd.Context(), questions, a.opts.concurrency)

	failed := 0
	var plain strings.Builder
	for i, reply := range replies {
		if replyError(reply) != nil {
			failed++
		}
		if i > 0 {
			plain.WriteString("\n\n")
		}
		fmt.Fprintf(&plain, "Q: %s\nA: %s", questions[i], reply.Text)
	}

	if !raw {
		if failed > 0 {
			spin.stopWithError(fmt.Sprintf("%d of %d questions got no answer", failed, len(questions)))
		} else {
			spin.stopWithSuccess(fmt.Sprintf("Answered %d questions", len(questions)))
		}
	}

	if err := a.deliver(stdout, stderr, plain.String(), func(w io.Writer) {
		for i, reply := range replies {
			fmt.Fprintln(w, questionStyle.Render("Q: "+questions[i]))
			a.printReply(w, reply.Text)
		}
	}); err != nil {
		return err
	}

	if missingKey {
		return apierrors.ErrMissingAPIKey
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions got no answer", failed, len(questions))
	}
	return nil
}

// readQuestions returns the trimmed non-blank lines of path
func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			questions = append(questions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return questions, nil
}

// deliver writes text to the output file, or stdout, and copies it to the
// clipboard when asked. decorated prints the styled form on a terminal.
func (a *app) deliver(stdout, stderr io.Writer, text string, decorated func(io.Writer)) error {
	raw := a.opts.raw

	if (a.opts.copy || a.cfg.CopyToClipboard) && !raw {
		if err := clipboard.WriteAll(text); err != nil {
			warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			)
			fmt.Fprintln(stderr, warnMsg)
		} else {
			fmt.Fprintln(stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if a.opts.output != "" {
		if err := os.WriteFile(a.opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !raw {
			fmt.Fprintln(stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Answer saved to %s", a.opts.output),
			))
		}
		return nil
	}

	if raw || !isStdoutTTY() {
		fmt.Fprintln(stdout, text)
		return nil
	}

	fmt.Fprintln(stderr)
	decorated(stdout)
	return nil
}

// printReply prints the assistant label and the reply rendered as markdown
func (a *app) printReply(w io.Writer, text string) {
	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}

	fmt.Fprintln(w, assistantLabelStyle.Render("🌱 MkulimaMkononi"))
	rendered := render.Reply(text, render.OptionsFromConfig(a.cfg.Markdown, bubbleWidth-4))
	fmt.Fprintln(w, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if body := apierrors.GetResponseBody(err); body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(body, "\n", "\n  "))))
	} else {
		switch {
		case apierrors.IsMissingAPIKey(err):
			sb.WriteString(dimStyle.Render("\n  Hint: set GEMINI_API_KEY or run 'agrichat config set api_key <key>'"))
		case apierrors.IsNetworkError(err):
			sb.WriteString(dimStyle.Render("\n  Hint: Check your internet connection and try again"))
		}
	}

	return sb.String()
}
