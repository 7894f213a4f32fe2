// Package metrics counts tier attempts and chain results.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-empathy/pkg/tier"
)

// historySize is how many recent results feed Average.
const historySize = 100

type attemptKey struct {
	chain   string
	tier    string
	outcome tier.Outcome
}

type tierKey struct {
	chain string
	tier  string
}

type resultKey struct {
	chain    string
	provider string
	fallback bool
}

// ChainResult is one completed chain run.
type ChainResult struct {
	Chain    string
	Provider string
	Fallback bool
	Elapsed  time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Attempts  map[string]int     `json:"attempts"`
	Results   map[string]int     `json:"results"`
	Fallbacks map[string]int     `json:"fallbacks"`
	AvgMs     map[string]float64 `json:"avg_ms"`
}

// Collector implements tier.Observer. It is goroutine-safe.
type Collector struct {
	mu       sync.Mutex
	attempts map[attemptKey]int
	latency  map[tierKey]time.Duration
	results  map[resultKey]int
	history  []ChainResult
	onResult func(ChainResult)
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		attempts: make(map[attemptKey]int),
		latency:  make(map[tierKey]time.Duration),
		results:  make(map[resultKey]int),
		history:  make([]ChainResult, 0, historySize),
	}
}

// OnResult sets a callback fired after every chain result.
func (c *Collector) OnResult(fn func(ChainResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// ObserveAttempt records one tier visit.
func (c *Collector) ObserveAttempt(chain string, a tier.Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[attemptKey{chain, a.Tier, a.Outcome}]++
	c.latency[tierKey{chain, a.Tier}] += a.Elapsed
}

// ObserveResult records a completed chain run.
func (c *Collector) ObserveResult(chain, provider string, fallback bool, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[resultKey{chain, provider, fallback}]++

	r := ChainResult{Chain: chain, Provider: provider, Fallback: fallback, Elapsed: elapsed}
	c.history = append(c.history, r)
	if len(c.history) > historySize {
		c.history = c.history[1:]
	}
	if c.onResult != nil {
		go c.onResult(r)
	}
}

// Attempts returns how many attempts of tier in chain ended with outcome.
func (c *Collector) Attempts(chain, tierName string, outcome tier.Outcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[attemptKey{chain, tierName, outcome}]
}

// Results returns how many runs of chain were answered by provider.
func (c *Collector) Results(chain, provider string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[resultKey{chain, provider, false}] + c.results[resultKey{chain, provider, true}]
}

// Fallbacks returns how many runs of chain ended in the terminal fallback.
func (c *Collector) Fallbacks(chain string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, v := range c.results {
		if k.chain == chain && k.fallback {
			n += v
		}
	}
	return n
}

// Average returns the mean elapsed time of recent runs of chain.
func (c *Collector) Average(chain string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total time.Duration
	n := 0
	for _, r := range c.history {
		if r.Chain == chain {
			total += r.Elapsed
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// Snapshot copies the counters, keyed "chain/tier/outcome" and
// "chain/provider".
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Attempts:  make(map[string]int, len(c.attempts)),
		Results:   make(map[string]int, len(c.results)),
		Fallbacks: make(map[string]int),
		AvgMs:     make(map[string]float64),
	}
	for k, v := range c.attempts {
		s.Attempts[k.chain+"/"+k.tier+"/"+string(k.outcome)] += v
	}
	for k, v := range c.results {
		s.Results[k.chain+"/"+k.provider] += v
		if k.fallback {
			s.Fallbacks[k.chain] += v
		}
	}

	sums := make(map[string]time.Duration)
	counts := make(map[string]int)
	for _, r := range c.history {
		sums[r.Chain] += r.Elapsed
		counts[r.Chain]++
	}
	for chain, sum := range sums {
		s.AvgMs[chain] = float64(sum.Milliseconds()) / float64(counts[chain])
	}
	return s
}

// WritePrometheus writes the counters in Prometheus text format.
func (c *Collector) WritePrometheus(w io.Writer) error {
	c.mu.Lock()
	attempts := make(map[attemptKey]int, len(c.attempts))
	for k, v := range c.attempts {
		attempts[k] = v
	}
	latency := make(map[tierKey]time.Duration, len(c.latency))
	for k, v := range c.latency {
		latency[k] = v
	}
	results := make(map[resultKey]int, len(c.results))
	for k, v := range c.results {
		results[k] = v
	}
	c.mu.Unlock()

	var lines []string
	lines = append(lines,
		"# HELP empath_tier_attempts_total Tier attempts by outcome.",
		"# TYPE empath_tier_attempts_total counter",
	)
	var body []string
	for k, v := range attempts {
		body = append(body, fmt.Sprintf("empath_tier_attempts_total{chain=%q,tier=%q,outcome=%q} %d", k.chain, k.tier, k.outcome, v))
	}
	sort.Strings(body)
	lines = append(lines, body...)

	lines = append(lines,
		"# HELP empath_tier_latency_seconds_total Time spent in tier attempts.",
		"# TYPE empath_tier_latency_seconds_total counter",
	)
	body = body[:0]
	for k, v := range latency {
		body = append(body, fmt.Sprintf("empath_tier_latency_seconds_total{chain=%q,tier=%q} %.3f", k.chain, k.tier, v.Seconds()))
	}
	sort.Strings(body)
	lines = append(lines, body...)

	lines = append(lines,
		"# HELP empath_chain_results_total Chain runs by answering provider.",
		"# TYPE empath_chain_results_total counter",
	)
	body = body[:0]
	for k, v := range results {
		body = append(body, fmt.Sprintf("empath_chain_results_total{chain=%q,provider=%q,fallback=\"%t\"} %d", k.chain, k.provider, k.fallback, v))
	}
	sort.Strings(body)
	lines = append(lines, body...)

	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Verify Collector implements tier.Observer at compile time.
var _ tier.Observer = (*Collector)(nil)
