package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mkulima/agrichat/internal/ussd"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MkulimaMkononi USSD service",
		Long: `Run the USSD callback service for Africa's Talking.

The service answers POST and GET requests on / with the MkulimaMkononi menu:
agri-tips, the weather forecast, the account menu and "Ask the assistant",
which forwards the question to the same assistant as the chat.

The port comes from --addr, then PORT, then the config file (default 5000).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = ":" + strconv.Itoa(a.cfg.USSD.Port)
			}
			return a.runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :PORT)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, addr string) error {
	ussd.WarnMissingCredentials(a.cfg.USSD.ATUsername, a.cfg.USSD.ATAPIKey, a.log)

	session, answerer, release, err := a.newSession(a.log)
	if err != nil {
		return err
	}
	defer release()

	if !answerer.HasCredential() {
		a.log.Warn("no API key configured; the assistant menu will report it is unavailable")
	}

	gin.SetMode(gin.ReleaseMode)
	handler := ussd.NewHandler(session, a.log)
	handler.SetAskTimeout(time.Duration(a.cfg.USSD.AskTimeoutSeconds) * time.Second)
	router := ussd.NewRouter(handler, a.log)

	if err := a.deps.Serve(cmd.Context(), addr, router, a.log); err != nil {
		return fmt.Errorf("USSD service failed: %w", err)
	}
	return nil
}
