package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkulima/agrichat/internal/config"
	"github.com/mkulima/agrichat/internal/logging"
	"github.com/mkulima/agrichat/internal/render"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with MkulimaMkononi.

Each question is answered on its own; earlier messages are not sent along.
You can keep asking while earlier answers are still on their way.
Type 'exit', 'quit', or press Esc or Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd)
		},
	}
}

// runChat starts the TUI. Logs go to a file so they do not corrupt the
// screen.
func (a *app) runChat(cmd *cobra.Command) error {
	logPath, err := config.GetLogPath(a.cfg)
	if err != nil {
		return err
	}
	logFile, err := logging.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logging.New(a.cfg.Log.Level, a.cfg.Log.Format, logFile)
	a.log = log

	session, answerer, release, err := a.newSession(log)
	if err != nil {
		return err
	}
	defer release()

	if !answerer.HasCredential() {
		log.Warn("starting chat without an API key; answers will be unavailable")
	}

	model := a.model()
	log.WithField("model", model.Name).Info("chat started")

	opts := render.OptionsFromConfig(a.cfg.Markdown, 0)
	if err := a.deps.TUI.RunChat(cmd.Context(), session, model.Name, opts); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	log.WithField("messages", session.Len()).Info("chat ended")
	return nil
}
