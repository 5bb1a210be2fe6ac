// Package render turns assistant replies into styled terminal text.
package render

// minWidth keeps narrow terminals from wrapping every word
const minWidth = 20

// Options selects how replies are rendered. It is comparable and doubles as
// the key of the renderer cache.
type Options struct {
	Width int
	// Style is a glamour built-in name or a path to a JSON style file
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
	TableWrap        bool
	InlineTableLinks bool
}

// BuiltinStyles lists the glamour styles that need no style file
var BuiltinStyles = []string{"dark", "light", "dracula", "notty", "ascii"}

// DefaultOptions suits a dark 80-column terminal
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// WithWidth returns a copy of o wrapping at width
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns a copy of o using style
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

func (o Options) normalized() Options {
	if o.Width < minWidth {
		o.Width = minWidth
	}
	if o.Style == "" {
		o.Style = "dark"
	}
	return o
}
