package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/atikulmunna/colorlog/internal/model"
)

// Policy decides which rule wins when a line contains several keywords.
type Policy string

const (
	// Leftmost picks the keyword occurring first in the line; ties at the
	// same position go to the earlier rule.
	Leftmost Policy = "leftmost"
	// Priority picks the first rule, in list order, whose keyword appears
	// anywhere in the line.
	Priority Policy = "priority"
)

// Matcher finds the rule that applies to a line.
type Matcher interface {
	Match(line string) (model.ColorRule, bool)
}

// New compiles rules into a Matcher for the given policy.
func New(rules []model.ColorRule, policy Policy) (Matcher, error) {
	switch policy {
	case Leftmost, "":
		return NewLeftmostMatcher(rules)
	case Priority:
		return NewPriorityMatcher(rules)
	default:
		return nil, fmt.Errorf("unknown match policy %q", policy)
	}
}

// ---------------------------------------------------------------------------
// Leftmost Matcher (single combined pattern)
// ---------------------------------------------------------------------------

// LeftmostMatcher searches every keyword at once with one alternation.
type LeftmostMatcher struct {
	re    *regexp.Regexp
	rules map[string]model.ColorRule
}

func NewLeftmostMatcher(rules []model.ColorRule) (*LeftmostMatcher, error) {
	if err := checkRules(rules); err != nil {
		return nil, err
	}

	alts := make([]string, len(rules))
	byKeyword := make(map[string]model.ColorRule, len(rules))
	for i, r := range rules {
		alts[i] = regexp.QuoteMeta(r.Keyword)
		byKeyword[r.Keyword] = r
	}

	// RE2 alternation is leftmost-first: at equal start positions the
	// earlier alternative wins, which gives rule-order tie breaking.
	re, err := regexp.Compile(strings.Join(alts, "|"))
	if err != nil {
		return nil, fmt.Errorf("compile keyword pattern: %w", err)
	}

	return &LeftmostMatcher{re: re, rules: byKeyword}, nil
}

func (m *LeftmostMatcher) Match(line string) (model.ColorRule, bool) {
	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return model.ColorRule{}, false
	}
	r, ok := m.rules[line[loc[0]:loc[1]]]
	return r, ok
}

// ---------------------------------------------------------------------------
// Priority Matcher (rules tested one by one)
// ---------------------------------------------------------------------------

// PriorityMatcher tests each rule in order and stops at the first hit.
type PriorityMatcher struct {
	rules []model.ColorRule
}

func NewPriorityMatcher(rules []model.ColorRule) (*PriorityMatcher, error) {
	if err := checkRules(rules); err != nil {
		return nil, err
	}

	own := make([]model.ColorRule, len(rules))
	copy(own, rules)
	return &PriorityMatcher{rules: own}, nil
}

func (m *PriorityMatcher) Match(line string) (model.ColorRule, bool) {
	for _, r := range m.rules {
		if strings.Contains(line, r.Keyword) {
			return r, true
		}
	}
	return model.ColorRule{}, false
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// checkRules rejects tables that cannot be matched unambiguously.
func checkRules(rules []model.ColorRule) error {
	if len(rules) == 0 {
		return errors.New("no color rules given")
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Keyword == "" {
			return fmt.Errorf("rule %d: empty keyword", i)
		}
		if seen[r.Keyword] {
			return fmt.Errorf("rule %d: duplicate keyword %q", i, r.Keyword)
		}
		seen[r.Keyword] = true
	}
	return nil
}
