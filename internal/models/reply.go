package models

// ReplyKind classifies how a call ended when it did not produce an answer
type ReplyKind int

const (
	ReplyUnavailable ReplyKind = iota
	ReplyHTTPError
	ReplyNetworkError
	ReplyNoAnswer
)

var replyTexts = map[ReplyKind]string{
	ReplyUnavailable:  "The assistant is currently unavailable. Please try again later.",
	ReplyHTTPError:    "Sorry, the assistant could not answer right now. Please try again in a moment.",
	ReplyNetworkError: "Sorry, I could not reach the assistant. Please check your connection and try again.",
	ReplyNoAnswer:     "Sorry, I could not get a clear answer. Please try rephrasing your question.",
}

// Text returns the fixed user-facing text for the kind
func (k ReplyKind) Text() string {
	if text, ok := replyTexts[k]; ok {
		return text
	}
	return replyTexts[ReplyNetworkError]
}

func (k ReplyKind) String() string {
	switch k {
	case ReplyUnavailable:
		return "unavailable"
	case ReplyHTTPError:
		return "http_error"
	case ReplyNetworkError:
		return "network_error"
	case ReplyNoAnswer:
		return "no_answer"
	default:
		return "unknown"
	}
}

// FailureKind reports whether text is one of the fixed failure texts and
// which kind produced it
func FailureKind(text string) (ReplyKind, bool) {
	for kind, t := range replyTexts {
		if t == text {
			return kind, true
		}
	}
	return 0, false
}
