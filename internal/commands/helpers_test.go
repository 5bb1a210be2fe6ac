package commands

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkulima/agrichat/internal/chat"
	"github.com/mkulima/agrichat/internal/config"
	"github.com/mkulima/agrichat/internal/models"
	"github.com/mkulima/agrichat/internal/render"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine and the
// command writing at once
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeAnswerer answers "answer to <query>" unless err is set. It records
// the deadline of the last call.
type fakeAnswerer struct {
	hasKey bool
	err    error
	calls  atomic.Int32

	mu          sync.Mutex
	deadline    time.Time
	hasDeadline bool
}

func (f *fakeAnswerer) HasCredential() bool { return f.hasKey }

func (f *fakeAnswerer) GenerateAnswer(ctx context.Context, system, query string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.deadline, f.hasDeadline = ctx.Deadline()
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "answer to " + query, nil
}

type fakeTUI struct {
	session   *chat.Session
	modelName string
	opts      render.Options
}

func (f *fakeTUI) RunChat(ctx context.Context, session *chat.Session, modelName string, opts render.Options) error {
	f.session = session
	f.modelName = modelName
	f.opts = opts
	return nil
}

type testEnv struct {
	deps      *Dependencies
	answerer  *fakeAnswerer
	tui       *fakeTUI
	model     models.Model
	cfg       config.Config
	released  atomic.Int32
	serveAddr string
	handler   http.Handler
	stdin     string
	piped     bool
}

// newTestEnv isolates HOME and the working directory and wires fakes
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"GEMINI_API_KEY", "AGRICHAT_MODEL", "AGRICHAT_SERIAL", "AGRICHAT_LOG_FILE",
		"AGRICHAT_LOG_LEVEL", "AGRICHAT_USSD_ASK_TIMEOUT", "PORT", "AT_USERNAME", "AT_API_KEY", "GLAMOUR_STYLE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())

	env := &testEnv{
		answerer: &fakeAnswerer{hasKey: true},
		tui:      &fakeTUI{},
	}
	env.deps = &Dependencies{
		NewAnswerer: func(cfg config.Config, model models.Model) (chat.Answerer, func(), error) {
			env.cfg = cfg
			env.model = model
			return env.answerer, func() { env.released.Add(1) }, nil
		},
		TUI: env.tui,
		Serve: func(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
			env.serveAddr = addr
			env.handler = handler
			return nil
		},
		Stdin:       strings.NewReader(""),
		StdinIsPipe: func() bool { return env.piped },
	}
	return env
}

func (e *testEnv) withStdin(s string) {
	e.piped = true
	e.deps.Stdin = strings.NewReader(s)
}

// run executes the command tree with args and returns stdout and stderr
func (e *testEnv) run(args ...string) (string, string, error) {
	var stdout, stderr syncBuffer
	cmd := NewRootCmd(e.deps)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
