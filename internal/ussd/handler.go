package ussd

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mkulima/agrichat/internal/models"
)

// DefaultAskTimeout bounds an assistant call made inside a USSD step. The
// gateway drops sessions that stay silent for too long.
const DefaultAskTimeout = 20 * time.Second

// Asker answers a question the same way the chat surfaces do.
// *chat.Session implements it.
type Asker interface {
	Ask(ctx context.Context, query string) models.Message
}

// Handler serves the USSD callback
type Handler struct {
	asker      Asker
	log        logrus.FieldLogger
	askTimeout time.Duration
}

// NewHandler creates a Handler. A nil asker disables the assistant branch.
func NewHandler(asker Asker, log logrus.FieldLogger) *Handler {
	return &Handler{
		asker:      asker,
		log:        log,
		askTimeout: DefaultAskTimeout,
	}
}

// SetAskTimeout changes the bound on assistant calls; zero disables it
func (h *Handler) SetAskTimeout(d time.Duration) {
	h.askTimeout = d
}

// Callback handles one step of a USSD session. Fields are read from the
// form body or the query string.
func (h *Handler) Callback(c *gin.Context) {
	var req Request
	if err := c.ShouldBind(&req); err != nil {
		h.log.WithError(err).Warn("malformed USSD request")
		c.String(http.StatusBadRequest, invalidSelection)
		return
	}

	var ask AskFunc
	if h.asker != nil {
		ask = h.ask
	}

	response := Respond(c.Request.Context(), req, ask)

	h.log.WithFields(logrus.Fields{
		"session_id":   req.SessionID,
		"service_code": req.ServiceCode,
		"text":         req.Text,
	}).Debug("USSD step")

	c.String(http.StatusOK, response)
}

func (h *Handler) ask(ctx context.Context, question string) string {
	if h.askTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.askTimeout)
		defer cancel()
	}
	return h.asker.Ask(ctx, question).Text
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// WarnMissingCredentials logs a warning when the Africa's Talking
// credentials are not configured. The service still runs without them.
func WarnMissingCredentials(username, apiKey string, log logrus.FieldLogger) bool {
	if username != "" && apiKey != "" {
		return false
	}
	log.Warn("Africa's Talking credentials (AT_USERNAME, AT_API_KEY) not found in environment or .env file")
	return true
}
