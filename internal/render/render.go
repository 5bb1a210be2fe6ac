package render

import "strings"

// Reply renders an assistant reply as markdown. Replies that glamour cannot
// render, including ones asking for an unknown style, come back as the raw
// text. Blank lines glamour adds around the block are trimmed so replies
// sit tight inside message bubbles.
func Reply(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	out, err := renderers.render(text, opts.normalized())
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
