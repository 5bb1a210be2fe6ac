// Package api provides the Generative Language API client implementation.
package api

// GJSON paths for extracting values from generateContent responses.
const (
	PathCandidates   = "candidates"
	PathFirstText    = "candidates.0.content.parts.0.text"
	PathFinishReason = "candidates.0.finishReason"
	PathBlockReason  = "promptFeedback.blockReason"

	// Error body paths - returned alongside non-2xx statuses
	PathErrorMessage = "error.message"
	PathErrorStatus  = "error.status"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 4096
