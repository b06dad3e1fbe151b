package model

import "strconv"

// Color is an ANSI foreground color.
type Color int

const (
	Black Color = iota + 30
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	Gray
)

var colorNames = map[Color]string{
	Black:   "black",
	Red:     "red",
	Green:   "green",
	Yellow:  "yellow",
	Blue:    "blue",
	Magenta: "magenta",
	Cyan:    "cyan",
	Gray:    "gray",
}

// Code returns the two-digit ANSI foreground code (30–37).
func (c Color) Code() string {
	return strconv.Itoa(int(c))
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return "color(" + c.Code() + ")"
}

// ColorRule maps a severity keyword to the style of the lines containing it.
type ColorRule struct {
	Keyword string
	Color   Color
	Bright  bool
}

// defaultRules is listed in priority order, which is not severity order.
var defaultRules = [...]ColorRule{
	{Keyword: "TRACE", Color: Gray, Bright: false},
	{Keyword: "INFO", Color: Green, Bright: true},
	{Keyword: "WARN", Color: Yellow, Bright: true},
	{Keyword: "DEBUG", Color: Cyan, Bright: true},
	{Keyword: "ERROR", Color: Red, Bright: true},
	{Keyword: "FATAL", Color: Magenta, Bright: true},
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []ColorRule {
	rules := make([]ColorRule, len(defaultRules))
	copy(rules, defaultRules[:])
	return rules
}
