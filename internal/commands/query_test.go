package commands

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/models"
)

func TestSpinnerLifecycle(t *testing.T) {
	var out syncBuffer
	s := newSpinner(&out, "Asking")
	s.start()
	time.Sleep(200 * time.Millisecond)
	s.stopWithSuccess("done")

	got := out.String()
	if !strings.Contains(got, "Asking") {
		t.Errorf("spinner never drew its message: %q", got)
	}
	if !strings.Contains(got, "done") {
		t.Errorf("success message missing: %q", got)
	}

	// A second stop must not panic
	s.stopOnce()
}

func TestSpinnerStopWithError(t *testing.T) {
	var out syncBuffer
	s := newSpinner(&out, "Asking")
	s.start()
	s.stopWithError("No answer")

	if !strings.Contains(out.String(), "No answer") {
		t.Errorf("error message missing: %q", out.String())
	}
}

func TestReplyError(t *testing.T) {
	if err := replyError(models.AssistantMessage("Use certified seed.")); err != nil {
		t.Errorf("answer classified as failure: %v", err)
	}
	err := replyError(models.AssistantMessage(models.ReplyNoAnswer.Text()))
	if err == nil || !strings.Contains(err.Error(), "no_answer") {
		t.Errorf("err = %v", err)
	}
}

func TestReadQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.txt")
	if err := os.WriteFile(path, []byte("  one \n\ntwo\r\n   \nthree"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readQuestions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"one", "two", "three"}; !reflect.DeepEqual(got, want) {
		t.Errorf("readQuestions() = %v, want %v", got, want)
	}

	if _, err := readQuestions(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"missing key", apierrors.ErrMissingAPIKey, []string{"Not configured", "GEMINI_API_KEY"}},
		{"api error", apierrors.NewAPIErrorWithBody(403, "https://example.test", "denied", `{"error":"no"}`),
			[]string{"HTTP Status: 403", "Endpoint: https://example.test", `{"error":"no"}`}},
		{"network", apierrors.NewNetworkError("generate content", errors.New("refused")), []string{"internet connection"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatErrorMessage(tt.err, "Not configured")
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q: %s", want, out)
				}
			}
		})
	}

	if formatErrorMessage(nil, "x") != "" {
		t.Error("nil error should format to empty string")
	}
}
