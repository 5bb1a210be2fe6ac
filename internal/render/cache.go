package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

const (
	// idlePerSet bounds the renderers parked for one Options value. A
	// TermRenderer serves one Render call at a time.
	idlePerSet = 4
	// maxSets bounds the remembered Options values. Each terminal resize
	// brings a new width, so the whole cache is dropped when it fills up.
	maxSets = 16
)

// rendererSet holds idle renderers built from one Options value. err is
// set when glamour rejected the options; it is remembered so a bad style
// costs one attempt, not one per reply.
type rendererSet struct {
	idle chan *glamour.TermRenderer
	err  error
}

type rendererCache struct {
	mu   sync.Mutex
	sets map[Options]*rendererSet
}

var renderers = newRendererCache()

func newRendererCache() *rendererCache {
	return &rendererCache{sets: make(map[Options]*rendererSet)}
}

// lookup returns the set for opts, building its first renderer on a miss
func (c *rendererCache) lookup(opts Options) *rendererSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.sets[opts]; ok {
		return set
	}
	if len(c.sets) >= maxSets {
		c.sets = make(map[Options]*rendererSet)
	}

	set := &rendererSet{idle: make(chan *glamour.TermRenderer, idlePerSet)}
	if r, err := newRenderer(opts); err != nil {
		set.err = err
	} else {
		set.idle <- r
	}
	c.sets[opts] = set
	return set
}

// render formats text with an idle renderer for opts, or a fresh one when
// all of them are busy
func (c *rendererCache) render(text string, opts Options) (string, error) {
	set := c.lookup(opts)
	if set.err != nil {
		return "", set.err
	}

	var r *glamour.TermRenderer
	select {
	case r = <-set.idle:
	default:
		var err error
		if r, err = newRenderer(opts); err != nil {
			return "", err
		}
	}

	out, err := r.Render(text)

	select {
	case set.idle <- r:
	default:
	}
	return out, err
}

func (c *rendererCache) reset() {
	c.mu.Lock()
	c.sets = make(map[Options]*rendererSet)
	c.mu.Unlock()
}

func (c *rendererCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	ropts := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}
