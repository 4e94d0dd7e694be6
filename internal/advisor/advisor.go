// Package advisor derives ranked optimization recommendations from current
// metric state, the active budget, and leak findings. Generation is a pure
// function of its inputs: each pass replaces the previous recommendation set
// outright.
package advisor

import (
	"fmt"
	"sort"

	"github.com/dmarkhas/gameperf/internal/budget"
	"github.com/dmarkhas/gameperf/internal/models"
)

// DefaultMaxRecommendations caps the generated set after the priority sort.
const DefaultMaxRecommendations = 20

// Metric ids the built-in rules inspect.
const (
	TextureMemoryMetricID = "texture_memory_bytes"
	TotalMemoryMetricID   = "total_memory_bytes"
	GCFractionMetricID    = "gc_cpu_fraction"
	DrawCallsMetricID     = "draw_calls"
)

// Rule thresholds.
const (
	frameOverrunFactor  = 1.2
	textureMemoryRatio  = 0.6
	gcFractionThreshold = 0.10
	drawCallThreshold   = 5000
)

// MetricReader reads current metric state.
type MetricReader interface {
	Read(id string) (models.Metric, error)
}

// Input bundles everything a rule may inspect.
type Input struct {
	Reader   MetricReader
	Budget   *models.Budget
	Findings []models.LeakFinding
}

// Rule inspects current state and returns zero or more recommendations. Rules
// are independent; adding one never requires touching another.
type Rule func(in Input) []models.Recommendation

// Engine evaluates a fixed rule set and returns the top recommendations.
type Engine struct {
	reader MetricReader
	rules  []Rule
	max    int
}

// NewEngine creates an Engine with the built-in rule set. Extra rules may be
// appended with AddRule before the first Generate call.
func NewEngine(reader MetricReader, maxRecommendations int) *Engine {
	if maxRecommendations <= 0 {
		maxRecommendations = DefaultMaxRecommendations
	}
	return &Engine{
		reader: reader,
		rules: []Rule{
			leakRule,
			frameTimeRule,
			textureMemoryRule,
			gcPressureRule,
			drawCallRule,
		},
		max: maxRecommendations,
	}
}

// AddRule appends a custom rule to the set.
func (e *Engine) AddRule(r Rule) {
	e.rules = append(e.rules, r)
}

// Generate runs every rule, sorts the results descending by priority (stable
// for equal priorities, so rule order breaks ties), and truncates to the
// configured maximum. Lower-priority noise is dropped, never accumulated.
func (e *Engine) Generate(activeBudget *models.Budget, findings []models.LeakFinding) []models.Recommendation {
	in := Input{Reader: e.reader, Budget: activeBudget, Findings: findings}

	var recs []models.Recommendation
	for _, rule := range e.rules {
		recs = append(recs, rule(in)...)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	if len(recs) > e.max {
		recs = recs[:e.max]
	}
	return recs
}

// leakRule: any leak finding outranks performance tuning, since it is a
// correctness risk rather than a tuning opportunity.
func leakRule(in Input) []models.Recommendation {
	if len(in.Findings) == 0 {
		return nil
	}
	high := 0
	for _, f := range in.Findings {
		if f.Severity == models.SeverityHigh {
			high++
		}
	}
	return []models.Recommendation{{
		ID:          "memory-leak-suspected",
		Priority:    10,
		Category:    models.CategoryMemory,
		Title:       "Possible memory leak",
		Description: fmt.Sprintf("%d leak finding(s), %d with sustained growth", len(in.Findings), high),
		Action:      "Inspect leak findings and correlate with recent level transitions or asset loads",
	}}
}

func frameTimeRule(in Input) []models.Recommendation {
	if in.Budget == nil || in.Budget.TargetFrameTimeMs <= 0 {
		return nil
	}
	m, err := in.Reader.Read(budget.FrameMetricID)
	if err != nil {
		return nil
	}
	limit := in.Budget.TargetFrameTimeMs * frameOverrunFactor
	if m.Value <= limit {
		return nil
	}
	return []models.Recommendation{{
		ID:          "frame-time-over-budget",
		Priority:    8,
		Category:    models.CategoryTiming,
		Title:       "Frame time exceeding budget",
		Description: fmt.Sprintf("frame time %.2fms is over %.0f%% of the %.2fms target", m.Value, frameOverrunFactor*100, in.Budget.TargetFrameTimeMs),
		Action:      "Profile the frame and rebalance subsystem shares or cut per-frame work",
		MetricID:    budget.FrameMetricID,
		Threshold:   limit,
	}}
}

func textureMemoryRule(in Input) []models.Recommendation {
	tex, err := in.Reader.Read(TextureMemoryMetricID)
	if err != nil {
		return nil
	}
	total, err := in.Reader.Read(TotalMemoryMetricID)
	if err != nil || total.Value <= 0 {
		return nil
	}
	ratio := tex.Value / total.Value
	if ratio <= textureMemoryRatio {
		return nil
	}
	return []models.Recommendation{{
		ID:          "high-texture-memory",
		Priority:    7,
		Category:    models.CategoryMemory,
		Title:       "High texture memory",
		Description: fmt.Sprintf("textures use %.0f%% of total memory", ratio*100),
		Action:      "Compress textures, drop mip levels, or stream distant assets",
		MetricID:    TextureMemoryMetricID,
		Threshold:   textureMemoryRatio,
	}}
}

func gcPressureRule(in Input) []models.Recommendation {
	m, err := in.Reader.Read(GCFractionMetricID)
	if err != nil || m.Value <= gcFractionThreshold {
		return nil
	}
	return []models.Recommendation{{
		ID:          "gc-pressure",
		Priority:    6,
		Category:    models.CategoryCPU,
		Title:       "High GC pressure",
		Description: fmt.Sprintf("garbage collection consumes %.1f%% of CPU time", m.Value*100),
		Action:      "Reduce per-frame allocations; pool short-lived objects",
		MetricID:    GCFractionMetricID,
		Threshold:   gcFractionThreshold,
	}}
}

func drawCallRule(in Input) []models.Recommendation {
	m, err := in.Reader.Read(DrawCallsMetricID)
	if err != nil || m.Value <= drawCallThreshold {
		return nil
	}
	return []models.Recommendation{{
		ID:          "high-draw-calls",
		Priority:    5,
		Category:    models.CategoryRendering,
		Title:       "High draw-call count",
		Description: fmt.Sprintf("%.0f draw calls in the last frame", m.Value),
		Action:      "Batch static geometry and use instancing for repeated meshes",
		MetricID:    DrawCallsMetricID,
		Threshold:   drawCallThreshold,
	}}
}
