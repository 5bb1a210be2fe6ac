package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/models"
)

func TestRootCommand_Help(t *testing.T) {
	cmd := NewRootCmd(NewDependencies())
	if cmd.Use != "agrichat [question]" {
		t.Errorf("Expected use 'agrichat [question]', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}

	for _, name := range []string{"chat", "config", "serve"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCmd(NewDependencies())

	tests := []struct {
		name      string
		shorthand string
	}{
		{"output", "o"},
		{"file", "f"},
		{"batch", ""},
		{"concurrency", ""},
		{"raw", ""},
		{"copy", ""},
		{"version", "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %s not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
		})
	}

	if cmd.PersistentFlags().Lookup("model") == nil {
		t.Error("model flag should be persistent")
	}
}

func TestRootCommand_Version(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("-v")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "agrichat "+Version) {
		t.Errorf("stdout = %q", stdout)
	}
	if env.answerer.calls.Load() != 0 {
		t.Error("version must not ask anything")
	}
}

func TestRootCommand_NoInputShowsHelp(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Errorf("expected help output, got %q", stdout)
	}
}

func TestRootCommand_TooManyArgs(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.run("one", "two"); err == nil {
		t.Error("expected error for two positional arguments")
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		file    string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{"--raw", "When to plant maize?"}, want: "answer to When to plant maize?\n"},
		{name: "trimmed", args: []string{"--raw", "  Coffee pruning?  "}, want: "answer to Coffee pruning?\n"},
		{name: "stdin", args: []string{"--raw"}, stdin: "Is it going to rain?\n", want: "answer to Is it going to rain?\n"},
		{name: "file", args: []string{"--raw"}, file: "Best beans variety?\n", want: "answer to Best beans variety?\n"},
		{name: "undecorated", args: []string{"Soil pH?"}, want: "answer to Soil pH?\n"},
		{name: "blank", args: []string{"--raw", "   "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			args := tt.args
			if tt.stdin != "" {
				env.withStdin(tt.stdin)
			}
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "q.txt")
				if err := os.WriteFile(path, []byte(tt.file), 0o600); err != nil {
					t.Fatal(err)
				}
				args = append(args, "-f", path)
			}

			stdout, _, err := env.run(args...)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
			if env.released.Load() != 1 {
				t.Error("answerer should be released")
			}
		})
	}
}

func TestQuery_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("-f", filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Errorf("err = %v", err)
	}
}

func TestQuery_MissingAPIKey(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"decorated", []string{"hello"}},
		{"raw", []string{"--raw", "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.answerer.hasKey = false

			stdout, _, err := env.run(tt.args...)
			if !errors.Is(err, apierrors.ErrMissingAPIKey) {
				t.Errorf("err = %v, want ErrMissingAPIKey", err)
			}
			if !strings.Contains(stdout, models.ReplyUnavailable.Text()) {
				t.Errorf("stdout = %q, want the unavailable text", stdout)
			}
			if env.answerer.calls.Load() != 0 {
				t.Error("no request should be made without a key")
			}
		})
	}
}

func TestBatch_MissingAPIKey(t *testing.T) {
	env := newTestEnv(t)
	env.answerer.hasKey = false
	path := filepath.Join(t.TempDir(), "questions.txt")
	if err := os.WriteFile(path, []byte("Maize spacing?\nBean pests?\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := env.run("--raw", "--batch", path)
	if !errors.Is(err, apierrors.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
	if n := strings.Count(stdout, models.ReplyUnavailable.Text()); n != 2 {
		t.Errorf("unavailable text printed %d times, want 2: %q", n, stdout)
	}
}

func TestQuery_FailurePrintsFixedTextAndFails(t *testing.T) {
	env := newTestEnv(t)
	env.answerer.err = apierrors.NewAPIErrorWithBody(503, "https://example.test", "overloaded", "{}")

	stdout, stderr, err := env.run("--raw", "Weather tomorrow?")
	if err == nil {
		t.Fatal("expected non-nil error for a failed answer")
	}
	if !strings.Contains(stdout, models.ReplyHTTPError.Text()) {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "generate content failed") {
		t.Errorf("failure should be logged, stderr = %q", stderr)
	}
}

func TestQuery_OutputFile(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(t.TempDir(), "answer.md")

	stdout, stderr, err := env.run("Maize spacing?", "-o", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty, got %q", stdout)
	}
	if !strings.Contains(stderr, "Answer saved to") {
		t.Errorf("stderr = %q", stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "answer to Maize spacing?" {
		t.Errorf("file = %q", data)
	}
}

func TestQuery_ModelSelection(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		env   string
		model string
	}{
		{"default", []string{"q"}, "", models.DefaultModel.Name},
		{"flag alias", []string{"-m", "pro", "q"}, "", models.Model25Pro.Name},
		{"flag name", []string{"--model", "gemini-2.5-flash", "q"}, "", "gemini-2.5-flash"},
		{"env", []string{"q"}, "gemini-2.5-pro", "gemini-2.5-pro"},
		{"flag beats env", []string{"-m", "fast", "q"}, "gemini-2.5-pro", models.DefaultModel.Name},
		{"unknown flag falls back", []string{"-m", "gemini-9-experimental", "q"}, "", models.DefaultModel.Name},
		{"unknown env falls back", []string{"q"}, "gpt-4", models.DefaultModel.Name},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.env != "" {
				t.Setenv("AGRICHAT_MODEL", tt.env)
			}
			if _, _, err := env.run(append([]string{"--raw"}, tt.args...)...); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.model.Name != tt.model {
				t.Errorf("model = %s, want %s", env.model.Name, tt.model)
			}
		})
	}
}

func TestQuery_UnknownModelWarns(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run("--raw", "-m", "gemini-9-experimental", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "unknown model") || !strings.Contains(stderr, "gemini-9-experimental") {
		t.Errorf("expected a fallback warning, got %q", stderr)
	}
}

func TestQuery_ConfigReachesFactory(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	if _, _, err := env.run("--raw", "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q", env.cfg.APIKey)
	}
}

func TestQuery_DotEnv(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(".env", []byte("GEMINI_API_KEY=dotenv-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GEMINI_API_KEY") })

	if _, _, err := env.run("--raw", "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.cfg.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want key from .env", env.cfg.APIKey)
	}
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "questions.txt")
	content := "When to plant maize?\n\n  Coffee berry disease?  \nWeather in Ruiru?\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := env.run("--raw", "--batch", path, "--concurrency", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.answerer.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}

	want := "Q: When to plant maize?\nA: answer to When to plant maize?\n\n" +
		"Q: Coffee berry disease?\nA: answer to Coffee berry disease?\n\n" +
		"Q: Weather in Ruiru?\nA: answer to Weather in Ruiru?\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestBatch_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.answerer.err = apierrors.ErrNoContent
	path := filepath.Join(t.TempDir(), "questions.txt")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := env.run("--batch", path)
	if err == nil || !strings.Contains(err.Error(), "2 of 2") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(stderr, "got no answer") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestBatch_Empty(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "questions.txt")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := env.run("--batch", path); err == nil {
		t.Error("expected error for a batch file without questions")
	}
}

func TestInvalidConfigFileFails(t *testing.T) {
	env := newTestEnv(t)
	home := os.Getenv("HOME")
	if err := os.MkdirAll(filepath.Join(home, ".agrichat"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".agrichat", "config.json"), []byte("{bad"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := env.run("q")
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("err = %v", err)
	}
}
