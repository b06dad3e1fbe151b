package output

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/atikulmunna/colorlog/internal/matcher"
	"github.com/atikulmunna/colorlog/internal/model"
)

const (
	escape = "\x1b["
	reset  = escape + "m"
)

// Style is the escape pair wrapped around a colored line.
type Style struct {
	Prefix string
	Suffix string
}

// StyleFor returns the escape pair for a rule: ESC[<bright>;<code>m ... ESC[m.
func StyleFor(r model.ColorRule) Style {
	brightness := "0"
	if r.Bright {
		brightness = "1"
	}
	return Style{
		Prefix: escape + brightness + ";" + r.Color.Code() + "m",
		Suffix: reset,
	}
}

// Wrap surrounds s with the style's escapes.
func (s Style) Wrap(text string) string {
	return s.Prefix + text + s.Suffix
}

// ---------------------------------------------------------------------------
// Colorizer
// ---------------------------------------------------------------------------

// Colorizer styles whole lines by the first matching severity keyword.
type Colorizer struct {
	matcher matcher.Matcher
	styles  map[string]Style
	plain   bool
}

// NewColorizer precomputes one style per rule. With plain set, lines are
// matched but never wrapped.
func NewColorizer(m matcher.Matcher, rules []model.ColorRule, plain bool) *Colorizer {
	styles := make(map[string]Style, len(rules))
	for _, r := range rules {
		styles[r.Keyword] = StyleFor(r)
	}
	return &Colorizer{matcher: m, styles: styles, plain: plain}
}

// Colorize returns line wrapped in its rule's style, including any trailing
// newline, or line unchanged when no keyword matches.
func (c *Colorizer) Colorize(line string) string {
	out, _, _ := c.Classify(line)
	return out
}

// Classify is Colorize that also reports the rule that matched.
func (c *Colorizer) Classify(line string) (string, model.ColorRule, bool) {
	r, ok := c.matcher.Match(line)
	if !ok {
		return line, model.ColorRule{}, false
	}
	if c.plain {
		return line, r, true
	}
	return c.styles[r.Keyword].Wrap(line), r, true
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// IsBrokenPipe reports whether err means the downstream reader went away.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}

// WriteString writes s to w, wrapping any failure with context.
func WriteString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
