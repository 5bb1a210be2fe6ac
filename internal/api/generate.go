package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/mkulima/agrichat/internal/errors"
	"github.com/mkulima/agrichat/internal/models"
)

// GenerateAnswer sends the system instruction and the query as a single
// request and returns the first candidate's first text part.
func (c *Client) GenerateAnswer(ctx context.Context, system, query string) (string, error) {
	if !c.HasCredential() {
		return "", apierrors.ErrMissingAPIKey
	}

	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query cannot be empty")
	}

	payload, err := buildPayload(system, query)
	if err != nil {
		return "", fmt.Errorf("failed to build payload: %w", err)
	}

	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.NewNetworkErrorWithEndpoint("generate content", endpoint, c.withoutKey(err))
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := "generate content failed"
		if msg := gjson.GetBytes(errorBody, PathErrorMessage).String(); msg != "" {
			message = msg
		}
		if status := gjson.GetBytes(errorBody, PathErrorStatus).String(); status != "" {
			message = status + ": " + message
		}
		return "", apierrors.NewAPIErrorWithBody(resp.StatusCode, endpoint, message, string(errorBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierrors.NewNetworkErrorWithEndpoint("read response", endpoint, c.withoutKey(err))
	}

	return parseResponse(body)
}

// withoutKey drops the request URL from a transport error, since the URL
// carries the key as a query parameter. Any other mention of the key is
// masked.
func (c *Client) withoutKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()

	msg := err.Error()
	if key == "" || (!strings.Contains(msg, key) && !strings.Contains(msg, url.QueryEscape(key))) {
		return err
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	return errors.New(msg)
}

// buildPayload creates the JSON body for the generate request
func buildPayload(system, query string) ([]byte, error) {
	return json.Marshal(models.NewGenerateRequest(system, query))
}

// parseResponse extracts the answer text from a generateContent body
func parseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", apierrors.NewParseError("response body is not valid JSON", "")
	}

	text := gjson.GetBytes(body, PathFirstText)
	if !text.Exists() || text.Type != gjson.String || strings.TrimSpace(text.String()) == "" {
		if reason := gjson.GetBytes(body, PathBlockReason).String(); reason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", apierrors.ErrNoContent, reason)
		}
		if reason := gjson.GetBytes(body, PathFinishReason).String(); reason != "" {
			return "", fmt.Errorf("%w: finish reason %s", apierrors.ErrNoContent, reason)
		}
		if !gjson.GetBytes(body, PathCandidates).Exists() {
			return "", fmt.Errorf("%w: no candidates", apierrors.ErrNoContent)
		}
		return "", apierrors.ErrNoContent
	}

	return text.String(), nil
}
