// Package commands provides CLI commands for agrichat.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mkulima/agrichat/internal/chat"
	"github.com/mkulima/agrichat/internal/config"
	"github.com/mkulima/agrichat/internal/logging"
	"github.com/mkulima/agrichat/internal/models"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootOptions holds the flags of the root command
type rootOptions struct {
	model       string
	output      string
	file        string
	batch       string
	concurrency int
	raw         bool
	copy        bool
}

// app carries state shared by every command once flags are parsed
type app struct {
	deps *Dependencies
	opts rootOptions
	cfg  config.Config
	log  *logrus.Logger
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// NewRootCmd creates the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	a := &app{deps: deps}

	cmd := &cobra.Command{
		Use:   "agrichat [question]",
		Short: "Farming and weather assistant for the terminal",
		Long: `agrichat answers questions about agriculture and the weather using the
Google Generative Language API. Every question is answered on its own,
without conversation memory.

Examples:
  agrichat chat                               Start interactive chat
  agrichat "When should I plant maize?"       Ask a single question
  agrichat -f question.txt                    Read the question from a file
  cat question.txt | agrichat                 Read the question from stdin
  agrichat --batch questions.txt              Answer one question per line
  agrichat "Best beans for Ruiru?" -o tip.md  Save the answer to a file
  agrichat serve                              Run the USSD service`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "agrichat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			if a.opts.batch != "" {
				return a.runBatch(cmd, a.opts.batch)
			}

			if a.opts.file != "" {
				data, err := os.ReadFile(a.opts.file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				return a.runQuery(cmd, string(data))
			}

			if len(args) > 0 {
				return a.runQuery(cmd, args[0])
			}

			if a.deps.StdinIsPipe() {
				data, err := io.ReadAll(a.deps.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return a.runQuery(cmd, string(data))
			}

			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.opts.model, "model", "m", "", "Model to use (e.g., gemini-2.5-flash)")
	cmd.Flags().StringVarP(&a.opts.output, "output", "o", "", "Save the answer to file")
	cmd.Flags().StringVarP(&a.opts.file, "file", "f", "", "Read the question from file")
	cmd.Flags().StringVar(&a.opts.batch, "batch", "", "Answer every line of file as a separate question")
	cmd.Flags().IntVar(&a.opts.concurrency, "concurrency", 4, "Questions answered at once with --batch")
	cmd.Flags().BoolVar(&a.opts.raw, "raw", false, "Print only the answer text")
	cmd.Flags().BoolVar(&a.opts.copy, "copy", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		stop()
		os.Exit(1)
	}
}

// setup loads .env and the configuration and builds the stderr logger.
// Commands that log elsewhere replace a.log.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if cfg.Verbose && level != "debug" {
		level = "debug"
	}
	a.log = logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

// model returns the model to use (from flag or config). Unknown names fall
// back to the default model with a warning.
func (a *app) model() models.Model {
	name := a.cfg.DefaultModel
	if a.opts.model != "" {
		name = a.opts.model
	}
	m, ok := models.LookupModel(name)
	if !ok {
		m = models.DefaultModel
		if a.log != nil {
			a.log.WithField("model", name).Warnf("unknown model, using %s", m.Name)
		}
	}
	return m
}

// newSession builds the answerer and a session around it. The returned
// func releases the answerer.
func (a *app) newSession(log logrus.FieldLogger) (*chat.Session, chat.Answerer, func(), error) {
	answerer, release, err := a.deps.NewAnswerer(a.cfg, a.model())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	if release == nil {
		release = func() {}
	}

	opts := []chat.Option{chat.WithLogger(log)}
	if a.cfg.SerialTurns {
		opts = append(opts, chat.WithSerialTurns())
	}
	return chat.NewSession(answerer, opts...), answerer, release, nil
}
