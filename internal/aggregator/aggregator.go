package aggregator

import (
	"sync"
	"time"

	"github.com/atikulmunna/colorlog/internal/model"
)

// Stats holds a point-in-time snapshot of the line tally.
type Stats struct {
	Elapsed       time.Duration
	TotalLines    int64
	Unmatched     int64
	KeywordCounts map[string]int64
	Keywords      []string // rule order
	Sources       int
}

// Aggregator counts colorized lines per keyword.
type Aggregator struct {
	mu         sync.RWMutex
	startTime  time.Time
	totalLines int64
	unmatched  int64
	counts     map[string]int64
	keywords   []string
	sources    int
}

// New creates an Aggregator reporting keywords in the order of rules.
func New(rules []model.ColorRule) *Aggregator {
	a := &Aggregator{
		startTime: time.Now(),
		counts:    make(map[string]int64, len(rules)),
		keywords:  make([]string, 0, len(rules)),
	}
	for _, r := range rules {
		a.keywords = append(a.keywords, r.Keyword)
		a.counts[r.Keyword] = 0
	}
	return a
}

// Record adds one line to the tally.
func (a *Aggregator) Record(rule model.ColorRule, matched bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalLines++
	if !matched {
		a.unmatched++
		return
	}
	a.counts[rule.Keyword]++
}

// SourceDone marks one input source as fully read.
func (a *Aggregator) SourceDone() {
	a.mu.Lock()
	a.sources++
	a.mu.Unlock()
}

// Snapshot returns the current tally.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64, len(a.counts))
	for k, v := range a.counts {
		counts[k] = v
	}
	keywords := make([]string, len(a.keywords))
	copy(keywords, a.keywords)

	return Stats{
		Elapsed:       time.Since(a.startTime).Truncate(time.Millisecond),
		TotalLines:    a.totalLines,
		Unmatched:     a.unmatched,
		KeywordCounts: counts,
		Keywords:      keywords,
		Sources:       a.sources,
	}
}
