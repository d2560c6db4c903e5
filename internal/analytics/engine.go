// Package analytics derives error-distribution reports and ranked focus
// recommendations from the mistake store. Reports are recomputed from a
// store snapshot on every call; there is no incremental state to drift
// out of sync with the underlying records.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/minqi/banxue/internal/store"
)

// UncategorizedTag is the bucket for mistake records without a topic tag.
const UncategorizedTag = "uncategorized"

// Snapshotter supplies a read-consistent view of the mistake store.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]store.Mistake, error)
}

// Config holds the ranking constants. These are deliberately not
// user-facing settings; the embedding caller may override them.
type Config struct {
	// TopK truncates the recommendation list.
	TopK int

	// DecayFloor is the minimum recency weight a record inside the
	// window can carry.
	DecayFloor float64

	// FreshFraction is the leading fraction of the window in which a
	// record weighs 1.0.
	FreshFraction float64
}

// DefaultConfig returns the standard ranking constants.
func DefaultConfig() Config {
	return Config{
		TopK:          5,
		DecayFloor:    0.2,
		FreshFraction: 0.1,
	}
}

// Recommendation is one ranked focus area.
type Recommendation struct {
	TopicTag string
	Count    int
	Score    float64
}

// Report is a derived view over the mistake store at one instant.
type Report struct {
	GeneratedAt time.Time
	// Window bounds the records considered; 0 means all-time.
	Window          time.Duration
	Distribution    map[string]int
	Recommendations []Recommendation
}

// Engine computes reports from store snapshots.
type Engine struct {
	src Snapshotter
	cfg Config
	now func() time.Time
}

// New creates an Engine over the given snapshot source.
func New(src Snapshotter, cfg Config) *Engine {
	return &Engine{src: src, cfg: cfg, now: time.Now}
}

// WithClock overrides the engine clock. Reports are a pure function of
// snapshot and clock, so a fixed clock makes them fully deterministic.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ComputeReport partitions the snapshot by topic tag and ranks topics by
// recency-weighted severity. A positive window excludes older records and
// applies linear decay; window 0 considers everything at full weight.
func (e *Engine) ComputeReport(ctx context.Context, window time.Duration) (*Report, error) {
	mistakes, err := e.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot mistakes: %w", err)
	}

	now := e.now()
	distribution := make(map[string]int)
	scores := make(map[string]float64)

	for _, m := range mistakes {
		age := now.Sub(m.CreatedAt)
		if window > 0 && age > window {
			continue
		}
		tag := m.TopicTag
		if tag == "" {
			tag = UncategorizedTag
		}
		distribution[tag]++
		scores[tag] += e.recencyWeight(age, window)
	}

	recs := make([]Recommendation, 0, len(scores))
	for tag, score := range scores {
		recs = append(recs, Recommendation{
			TopicTag: tag,
			Count:    distribution[tag],
			Score:    score,
		})
	}
	// Severity descending; topic tag lexical order breaks ties so the
	// ranking is deterministic.
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].TopicTag < recs[j].TopicTag
	})
	if e.cfg.TopK > 0 && len(recs) > e.cfg.TopK {
		recs = recs[:e.cfg.TopK]
	}

	return &Report{
		GeneratedAt:     now,
		Window:          window,
		Distribution:    distribution,
		Recommendations: recs,
	}, nil
}

// recencyWeight computes the decay factor for a record of the given age.
// Records younger than FreshFraction of the window weigh 1.0; the weight
// then falls linearly to DecayFloor at the window's far edge. With no
// window there is no decay anchor, so every record weighs 1.0.
func (e *Engine) recencyWeight(age, window time.Duration) float64 {
	if window <= 0 {
		return 1.0
	}
	fresh := time.Duration(float64(window) * e.cfg.FreshFraction)
	if age <= fresh {
		return 1.0
	}
	span := float64(window - fresh)
	frac := float64(age-fresh) / span
	w := 1.0 - (1.0-e.cfg.DecayFloor)*frac
	if w < e.cfg.DecayFloor {
		return e.cfg.DecayFloor
	}
	return w
}
