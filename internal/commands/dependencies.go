package commands

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkulima/agrichat/internal/api"
	"github.com/mkulima/agrichat/internal/chat"
	"github.com/mkulima/agrichat/internal/config"
	"github.com/mkulima/agrichat/internal/models"
	"github.com/mkulima/agrichat/internal/render"
	"github.com/mkulima/agrichat/internal/tui"
	"github.com/mkulima/agrichat/internal/ussd"
)

// AnswererFactory builds the answerer for a model. The returned func
// releases its resources.
type AnswererFactory func(cfg config.Config, model models.Model) (chat.Answerer, func(), error)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, session *chat.Session, modelName string, opts render.Options) error
}

// ServeFunc runs an HTTP handler until ctx is done
type ServeFunc func(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	NewAnswerer AnswererFactory
	TUI         TUIInterface
	Serve       ServeFunc

	// Stdin is read when no question is given on the command line
	Stdin io.Reader
	// StdinIsPipe reports whether Stdin carries piped input
	StdinIsPipe func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, session *chat.Session, modelName string, opts render.Options) error {
	return tui.RunChat(ctx, session, modelName, opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewAnswerer: newAPIAnswerer,
		TUI:         &DefaultTUI{},
		Serve:       ussd.Serve,
		Stdin:       os.Stdin,
		StdinIsPipe: stdinIsPipe,
	}
}

// newAPIAnswerer creates the Generative Language API client
func newAPIAnswerer(cfg config.Config, model models.Model) (chat.Answerer, func(), error) {
	opts := []api.ClientOption{api.WithModel(model)}
	if cfg.Endpoint != "" {
		opts = append(opts, api.WithEndpoint(cfg.Endpoint))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}

	client, err := api.NewClient(cfg.APIKey, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func stdinIsPipe() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
