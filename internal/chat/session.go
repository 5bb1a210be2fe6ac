// Package chat implements the chat session controller: it owns the message
// log, turns user input into one outbound request per message and appends
// the reply, or a fixed error text, to the log.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/logging"
	"github.com/mkulima/agrichat/internal/models"
)

// Answerer produces a reply for a single query. *api.Client implements it.
type Answerer interface {
	HasCredential() bool
	GenerateAnswer(ctx context.Context, system, query string) (string, error)
}

// Session maintains the message log for one chat surface
type Session struct {
	answerer Answerer
	system   string
	log      logrus.FieldLogger
	serial   bool

	mu      sync.Mutex // Protects entries, lastDone
	entries []models.Entry

	// lastDone is closed when the most recently begun turn settles.
	// Only used when serial is set.
	lastDone chan struct{}
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for diagnostics
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithSystemInstruction replaces the default system instruction
func WithSystemInstruction(system string) Option {
	return func(s *Session) {
		s.system = system
	}
}

// WithSerialTurns makes turns resolve one at a time, in submission order.
// Without it concurrent turns resolve independently and replies land in the
// order their responses arrive.
func WithSerialTurns() Option {
	return func(s *Session) {
		s.serial = true
	}
}

// NewSession creates a Session with an empty log
func NewSession(answerer Answerer, opts ...Option) *Session {
	s := &Session{
		answerer: answerer,
		system:   models.SystemInstruction,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

// Submit appends the user message, waits for the reply and appends it.
// Returns false without touching the log when query is blank.
func (s *Session) Submit(ctx context.Context, query string) bool {
	turn, ok := s.Begin(query)
	if !ok {
		return false
	}
	turn.Await(ctx)
	return true
}

// Begin appends the user message and a placeholder for the reply. The call
// itself starts when the returned Turn is awaited; every begun turn must be
// awaited.
func (s *Session) Begin(query string) (*Turn, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}

	turn := &Turn{
		session:       s,
		query:         query,
		placeholderID: uuid.NewString(),
	}

	s.mu.Lock()
	if s.serial {
		turn.prev = s.lastDone
		turn.done = make(chan struct{})
		s.lastDone = turn.done
	}
	s.entries = append(s.entries,
		models.Entry{ID: uuid.NewString(), Message: models.UserMessage(query)},
		models.Entry{ID: turn.placeholderID, Message: models.AssistantMessage(models.PlaceholderText), Pending: true},
	)
	s.mu.Unlock()

	return turn, true
}

// Ask performs one external call for query and converts the outcome into an
// assistant message. It never fails: every error maps to a fixed text.
func (s *Session) Ask(ctx context.Context, query string) (reply models.Message) {
	if s.answerer == nil || !s.answerer.HasCredential() {
		s.log.Warn("no API key configured, skipping request")
		return models.AssistantMessage(models.ReplyUnavailable.Text())
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("answerer panicked")
			reply = models.AssistantMessage(models.ReplyNetworkError.Text())
		}
	}()

	text, err := s.answerer.GenerateAnswer(ctx, s.system, query)
	if err != nil {
		return models.AssistantMessage(s.replyFor(err).Text())
	}
	return models.AssistantMessage(text)
}

// replyFor classifies err and records diagnostics for it
func (s *Session) replyFor(err error) models.ReplyKind {
	kind := ReplyKindFor(err)

	switch kind {
	case models.ReplyUnavailable:
		s.log.Warn("no API key configured, skipping request")
	case models.ReplyHTTPError:
		s.log.WithFields(logrus.Fields{
			"status":   apierrors.GetHTTPStatus(err),
			"endpoint": apierrors.GetEndpoint(err),
			"body":     apierrors.GetResponseBody(err),
		}).Error("generate content failed")
	case models.ReplyNoAnswer:
		s.log.WithError(err).Warn("response carried no answer text")
	default:
		s.log.WithError(err).WithField("endpoint", apierrors.GetEndpoint(err)).Warn("request failed")
	}

	return kind
}

// ReplyKindFor maps an answerer error onto the fixed reply table
func ReplyKindFor(err error) models.ReplyKind {
	switch {
	case errors.Is(err, apierrors.ErrMissingAPIKey):
		return models.ReplyUnavailable
	case apierrors.IsAPIError(err):
		return models.ReplyHTTPError
	case errors.Is(err, apierrors.ErrNoContent):
		return models.ReplyNoAnswer
	default:
		return models.ReplyNetworkError
	}
}

// settle removes the placeholder and appends the reply in one step
func (s *Session) settle(placeholderID string, reply models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == placeholderID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.entries = append(s.entries, models.Entry{ID: uuid.NewString(), Message: reply})
}

// Messages returns a snapshot of the log. Placeholders appear as assistant
// messages carrying PlaceholderText.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Message, len(s.entries))
	for i, e := range s.entries {
		result[i] = e.Message
	}
	return result
}

// Entries returns a snapshot of the log with pending flags
func (s *Session) Entries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Entry, len(s.entries))
	copy(result, s.entries)
	return result
}

// Pending returns the number of calls still outstanding
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.Pending {
			n++
		}
	}
	return n
}

// Len returns the number of log entries, placeholders included
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Turn is one submitted query awaiting its reply
type Turn struct {
	session       *Session
	query         string
	placeholderID string

	// prev and done chain turns in submission order when serial
	prev <-chan struct{}
	done chan struct{}

	once  sync.Once
	reply models.Message
}

// Query returns the trimmed query text
func (t *Turn) Query() string {
	return t.query
}

// Await performs the call and settles the log. The placeholder is removed
// whatever the outcome. Calling Await again returns the same reply.
func (t *Turn) Await(ctx context.Context) models.Message {
	t.once.Do(func() {
		s := t.session
		if t.done != nil {
			defer close(t.done)
		}
		if t.prev != nil {
			select {
			case <-t.prev:
			case <-ctx.Done():
			}
		}

		t.reply = models.AssistantMessage(models.ReplyNetworkError.Text())
		defer func() {
			s.settle(t.placeholderID, t.reply)
		}()

		t.reply = s.Ask(ctx, t.query)
	})
	return t.reply
}
