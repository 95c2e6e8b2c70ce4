package gating

import (
	"fmt"
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"cadence/internal/engagement"
	"cadence/internal/logging"
	"cadence/internal/types"
)

// DefaultCacheCapacity is used when no capacity is configured.
const DefaultCacheCapacity = 32

// DefaultConfidenceBucket is the maturity confidence bucket width.
const DefaultConfidenceBucket = 10

// Inputs is the state a gate evaluation consults.
type Inputs struct {
	Metrics  engagement.Metrics
	Signals  types.IntelligenceSignals
	Maturity engagement.MaturityState
}

// Check is the outcome of one requirement.
type Check struct {
	Metric   string  `json:"metric"`
	Current  float64 `json:"current"`
	Required float64 `json:"required"`
	Passed   bool    `json:"passed"`
	Detail   string  `json:"detail,omitempty"`
}

// ratio is the completion fraction of a check in [0,1].
func (c Check) ratio() float64 {
	if c.Passed {
		return 1
	}
	if c.Required <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, c.Current/c.Required))
}

// Result is the evaluation of one feature.
type Result struct {
	Key         string  `json:"key"`
	Category    string  `json:"category,omitempty"`
	Found       bool    `json:"found"`
	Available   bool    `json:"available"`
	Progress    int     `json:"progress"`
	Checks      []Check `json:"checks,omitempty"`
	NextUnmet   *Check  `json:"next_unmet_requirement,omitempty"`
	Description string  `json:"description,omitempty"`
}

// CategorySummary counts availability within a category.
type CategorySummary struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// Summary counts availability across the registry.
type Summary struct {
	Available  int                        `json:"available"`
	Total      int                        `json:"total"`
	ByCategory map[string]CategorySummary `json:"by_category"`
}

// Evaluation is the cached result of evaluating every registered feature.
// Cached evaluations are shared; callers must treat them as read-only.
type Evaluation struct {
	Fingerprint string            `json:"fingerprint"`
	Order       []string          `json:"order"`
	Features    map[string]Result `json:"features"`
	Summary     Summary           `json:"summary"`
}

// Available reports whether key is unlocked in this evaluation.
func (e *Evaluation) Available(key string) bool {
	if e == nil {
		return false
	}
	return e.Features[key].Available
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits        int `json:"hits"`
	Misses      int `json:"misses"`
	Evaluations int `json:"evaluations"`
	Anomalies   int `json:"anomalies"`
	Cached      int `json:"cached"`
}

// Gate evaluates the feature registry and caches whole-registry evaluations
// keyed by a fingerprint of the consulted state.
type Gate struct {
	registry  []FeatureDefinition
	index     map[string]int
	consulted []string
	bucket    int
	cache     *lru.Cache[string, *Evaluation]
	stats     Stats
}

// Option configures a Gate.
type Option func(*gateOptions)

type gateOptions struct {
	registry []FeatureDefinition
	capacity int
	bucket   int
}

// WithRegistry replaces the default registry.
func WithRegistry(defs []FeatureDefinition) Option {
	return func(o *gateOptions) { o.registry = defs }
}

// WithCacheCapacity bounds the number of cached fingerprints.
func WithCacheCapacity(n int) Option {
	return func(o *gateOptions) { o.capacity = n }
}

// WithConfidenceBucket sets the confidence bucket width used in fingerprints.
func WithConfidenceBucket(n int) Option {
	return func(o *gateOptions) { o.bucket = n }
}

// NewGate creates a gate over the registry.
func NewGate(opts ...Option) *Gate {
	o := gateOptions{
		registry: DefaultRegistry,
		capacity: DefaultCacheCapacity,
		bucket:   DefaultConfidenceBucket,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity <= 0 {
		o.capacity = DefaultCacheCapacity
	}
	if o.bucket <= 0 {
		o.bucket = DefaultConfidenceBucket
	}

	cache, err := lru.New[string, *Evaluation](o.capacity)
	if err != nil {
		// Only reachable with a non-positive size, which is excluded above.
		panic(fmt.Sprintf("gating: lru.New(%d): %v", o.capacity, err))
	}

	g := &Gate{
		registry: o.registry,
		index:    make(map[string]int, len(o.registry)),
		bucket:   o.bucket,
		cache:    cache,
	}

	seen := make(map[string]bool)
	for i, def := range o.registry {
		g.index[def.Key] = i
		for _, req := range def.Requirements {
			if req.Metric == MetricMaturityLevel || seen[req.Metric] {
				continue
			}
			seen[req.Metric] = true
			g.consulted = append(g.consulted, req.Metric)
		}
	}
	sort.Strings(g.consulted)

	return g
}

// Registry returns the registered definitions.
func (g *Gate) Registry() []FeatureDefinition {
	return g.registry
}

// EvaluateFeature evaluates a single feature. Unknown keys yield a result
// with Found=false.
func (g *Gate) EvaluateFeature(key string, in Inputs) Result {
	i, ok := g.index[key]
	if !ok {
		logging.GatingDebug("evaluate: unknown feature %q", key)
		return Result{Key: key, Found: false}
	}
	return evaluate(g.registry[i], in)
}

func evaluate(def FeatureDefinition, in Inputs) Result {
	res := Result{
		Key:         def.Key,
		Category:    def.Category,
		Description: def.Description,
		Found:       true,
		Available:   true,
		Checks:      make([]Check, 0, len(def.Requirements)),
	}

	var progressSum float64
	for _, req := range def.Requirements {
		c := resolve(req, in)
		res.Checks = append(res.Checks, c)
		progressSum += c.ratio() * 100
		if !c.Passed {
			res.Available = false
		}
	}

	if n := len(res.Checks); n > 0 {
		res.Progress = int(math.Round(progressSum / float64(n)))
	} else {
		res.Progress = 100
	}

	res.NextUnmet = nearestUnmet(res.Checks)
	return res
}

// nearestUnmet picks the unmet check closest to completion; registry order
// breaks ties.
func nearestUnmet(checks []Check) *Check {
	var best *Check
	for i := range checks {
		c := checks[i]
		if c.Passed {
			continue
		}
		if best == nil || c.ratio() > best.ratio() {
			cc := c
			best = &cc
		}
	}
	return best
}

func resolve(req Requirement, in Inputs) Check {
	if req.Metric == MetricMaturityLevel {
		level := in.Maturity.Level
		passed := false
		for _, l := range req.Levels {
			if l == level {
				passed = true
				break
			}
		}
		c := Check{Metric: req.Metric, Required: 1, Passed: passed, Detail: string(level)}
		if passed {
			c.Current = 1
		}
		return c
	}

	current, known := metricValue(req.Metric, in)
	if !known {
		logging.GatingWarn("requirement addresses unknown metric %q", req.Metric)
	}
	return Check{
		Metric:   req.Metric,
		Current:  current,
		Required: req.Threshold,
		Passed:   known && current >= req.Threshold,
	}
}

// metricValue resolves a counter, collection length or intelligence signal.
func metricValue(path string, in Inputs) (float64, bool) {
	m := in.Metrics
	switch path {
	case MetricDaysUsed:
		return float64(m.DaysUsed), true
	case MetricSessionsCount:
		return float64(m.SessionsCount), true
	case MetricTotalTimeSpent:
		return float64(m.TotalTimeSpent), true
	case MetricConversationsStarted:
		return float64(m.ConversationsStarted), true
	case MetricConversationsCompleted:
		return float64(m.ConversationsCompleted), true
	case MetricNotebookEntries:
		return float64(m.NotebookEntriesCreated), true
	case MetricCycleTrackedDays:
		return float64(m.CycleTrackedDays), true
	case MetricInsightsSaved:
		return float64(m.InsightsSaved), true
	case MetricVignettesEngaged:
		return float64(m.VignettesEngaged), true
	case MetricCyclesCompleted:
		return float64(m.CyclesCompleted), true
	case MetricAutonomySignals:
		return float64(m.AutonomySignals), true
	case MetricPhasesExplored:
		return float64(len(m.PhasesExplored)), true
	}

	if !strings.HasPrefix(path, IntelligencePrefix) {
		return 0, false
	}
	s := in.Signals
	switch path {
	case SignalCorrectsPredictions:
		return float64(s.CorrectsPredictions), true
	case SignalManualPhaseChanges:
		return float64(s.ManualPhaseChanges), true
	case SignalDetailedObservations:
		return float64(s.DetailedObservations), true
	case SignalPatternRecognitions:
		return float64(s.PatternRecognitions), true
	case SignalObservationCount:
		return float64(s.ObservationCount), true
	case SignalPatternPhases:
		return float64(s.PatternPhases), true
	}
	return 0, false
}

// Fingerprint summarizes exactly the state the registry consults:
//
//	<metric>=<value>|...|maturity=<level>|conf=<confidence/bucket>
//
// Metrics appear in sorted path order. Confidence is bucketed so small
// confidence moves do not churn the cache.
func (g *Gate) Fingerprint(in Inputs) string {
	var b strings.Builder
	for _, path := range g.consulted {
		v, _ := metricValue(path, in)
		fmt.Fprintf(&b, "%s=%g|", path, v)
	}
	fmt.Fprintf(&b, "maturity=%s|conf=%d", in.Maturity.Level, in.Maturity.Confidence/g.bucket)
	return b.String()
}

// EvaluateAll evaluates every registered feature. Identical fingerprints
// return the identical cached *Evaluation without recomputation.
func (g *Gate) EvaluateAll(in Inputs) *Evaluation {
	fp := g.Fingerprint(in)

	if ev, ok := g.cache.Get(fp); ok {
		if ev != nil && ev.Features != nil && len(ev.Features) == len(g.registry) {
			g.stats.Hits++
			return ev
		}
		g.stats.Anomalies++
		g.cache.Remove(fp)
		logging.GatingWarn("malformed cache entry for %s; recomputing", fp)
	}

	g.stats.Misses++
	timer := logging.StartTimer(logging.CategoryGating, "evaluate_all")
	ev := g.evaluateAll(fp, in)
	timer.Stop()

	if evicted := g.cache.Add(fp, ev); evicted {
		logging.GatingDebug("cache full; evicted least recently used fingerprint")
	}
	return ev
}

func (g *Gate) evaluateAll(fp string, in Inputs) *Evaluation {
	g.stats.Evaluations++

	ev := &Evaluation{
		Fingerprint: fp,
		Order:       make([]string, 0, len(g.registry)),
		Features:    make(map[string]Result, len(g.registry)),
		Summary: Summary{
			Total:      len(g.registry),
			ByCategory: make(map[string]CategorySummary),
		},
	}

	for _, def := range g.registry {
		res := evaluate(def, in)
		ev.Order = append(ev.Order, def.Key)
		ev.Features[def.Key] = res

		cat := ev.Summary.ByCategory[def.Category]
		cat.Total++
		if res.Available {
			cat.Available++
			ev.Summary.Available++
		}
		ev.Summary.ByCategory[def.Category] = cat
	}

	logging.GatingDebug("evaluated %d features: %d available", ev.Summary.Total, ev.Summary.Available)
	return ev
}

// Invalidate drops every cached evaluation.
func (g *Gate) Invalidate() {
	g.cache.Purge()
}

// Stats returns cache counters.
func (g *Gate) Stats() Stats {
	s := g.stats
	s.Cached = g.cache.Len()
	return s
}

// injectCached stores ev under fp directly; tests use it to simulate a
// corrupted entry.
func (g *Gate) injectCached(fp string, ev *Evaluation) {
	g.cache.Add(fp, ev)
}
