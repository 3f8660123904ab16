// Package temporal - recency scoring for retrieval re-ranking.
//
// The re-ranker blends a candidate's semantic similarity with a
// timestamp-derived recency score. Four decay shapes are supported, chosen
// per query via Mode:
//
//   - Exponential: classic half-life decay, smooth and unbounded in age.
//   - LinearWindow: score falls linearly to zero over a fixed window.
//   - Step: a flat boost while the candidate is "fresh", then nothing.
//   - Buckets: an explicit age -> score lookup table, for hand-tuned curves.
//
// # ELI12 (Explain Like I'm 12)
//
// Picture a cookie you baked:
//
//	🍪 Fresh out of the oven (today)      -> tastes great, score near 1.0
//	🍪 A week old                          -> still okay, score dropping
//	🍪 A month old                         -> pretty stale, score near 0
//
// Exponential decay is like a cookie that goes stale smoothly - it never
// quite hits zero, just gets closer and closer. LinearWindow is a cookie
// with an expiration date stamped on it - score falls in a straight line
// until the date, then it's zero. Step is an all-or-nothing rule: "still
// good this week, garbage after." Buckets let you draw your own staleness
// curve by hand, one age threshold at a time.
//
// The re-ranker never throws the cookie away on its own - it just blends
// the freshness score with how well the cookie matches what you asked for,
// using a configurable weight.
package temporal

import (
	"math"
	"sort"
	"time"
)

// Mode selects one of the four closed decay shapes. The set is closed by
// design (design note: "polymorphism over temporal modes" -> tagged variant,
// not dynamic dispatch), so switch statements over Mode are exhaustive and
// a fifth mode will never appear without a source change.
type Mode int

const (
	ModeExponential Mode = iota
	ModeLinearWindow
	ModeStep
	ModeBuckets
)

// Bucket is one (max_age_seconds, score) entry in a Buckets curve. Buckets
// should be supplied in ascending max age order.
type Bucket struct {
	MaxAgeSeconds float64
	Score         float64
}

// Config configures one call to Rerank. The zero value is not usable
// directly; start from DefaultConfig.
type Config struct {
	Enabled bool
	// Weight is how much the temporal score influences the final score;
	// 0 = ignore recency entirely, 1 = ignore semantic score entirely.
	Weight float64
	Mode   Mode

	HalfLifeSeconds  float64 // Exponential
	WindowSeconds    float64 // LinearWindow, Step
	BoostMagnitude   float64 // Step
	Buckets          []Bucket

	// NowSeconds pins "now" for deterministic tests; zero means unset.
	NowSeconds int64
}

const (
	// DefaultTemporalWeight is the specification's default blend weight.
	DefaultTemporalWeight = 0.20
	// DefaultHalfLifeDays is the specification's default exponential half-life.
	DefaultHalfLifeDays = 14
)

// DefaultConfig returns an enabled Exponential re-ranker with a 14-day
// half-life and weight 0.20, matching the specification's stated defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Weight:          DefaultTemporalWeight,
		Mode:            ModeExponential,
		HalfLifeSeconds: DefaultHalfLifeDays * 24 * 3600,
		WindowSeconds:   DefaultHalfLifeDays * 24 * 3600,
		BoostMagnitude:  1.0,
	}
}

// Candidate is the minimal shape Rerank needs: a raw semantic score and an
// optional unix timestamp (nil when the source note has no timestamp).
type Candidate struct {
	TurnID    uint64
	NoteID    uint32
	RawScore  float32
	Timestamp *uint64
}

// Scored is a Candidate enriched with temporal_score and final_score, both
// clamped to [0,1].
type Scored struct {
	Candidate
	TemporalScore float32
	FinalScore    float32
}

// resolveNow implements the resolution order: explicit now argument beats
// cfg.NowSeconds beats wall-clock.
func resolveNow(explicit *int64, cfg Config) int64 {
	if explicit != nil {
		return *explicit
	}
	if cfg.NowSeconds != 0 {
		return cfg.NowSeconds
	}
	return time.Now().Unix()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// score computes one candidate's temporal_score for a resolved "now".
// Missing timestamp is handled by the caller (always 0); age is always
// clamped non-negative in case of clock skew between note and query time.
func (c Config) score(ts uint64, now int64) float64 {
	age := float64(now) - float64(ts)
	if age < 0 {
		age = 0
	}

	switch c.Mode {
	case ModeExponential:
		halfLife := c.HalfLifeSeconds
		if halfLife <= 0 {
			halfLife = DefaultHalfLifeDays * 24 * 3600
		}
		return clamp01(math.Exp(-math.Ln2 * age / halfLife))

	case ModeLinearWindow:
		window := c.WindowSeconds
		if window <= 0 {
			window = DefaultHalfLifeDays * 24 * 3600
		}
		return clamp01(1 - age/window)

	case ModeStep:
		boost := c.BoostMagnitude
		if boost == 0 {
			boost = 1.0
		}
		boost = clamp01(boost)
		if age <= c.WindowSeconds {
			return boost
		}
		return 0

	case ModeBuckets:
		if len(c.Buckets) == 0 {
			// fall back to Exponential per the design note
			fallback := c
			fallback.Mode = ModeExponential
			return fallback.score(ts, now)
		}
		sorted := append([]Bucket(nil), c.Buckets...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaxAgeSeconds < sorted[j].MaxAgeSeconds })
		for _, b := range sorted {
			if b.MaxAgeSeconds >= age {
				return clamp01(b.Score)
			}
		}
		return 0

	default:
		return 0
	}
}

// Rerank blends each candidate's raw score with a temporal score and
// returns the list sorted by final_score descending (ties stable, matching
// input order - Go's sort.SliceStable preserves that). Passing a disabled
// config is idempotent: re_rank(re_rank(xs, disabled), disabled) ==
// re_rank(xs, disabled), since disabled always sets temporal_score=0 and
// final_score=clamp(raw,0,1), a pure function of raw alone.
func Rerank(candidates []Candidate, cfg Config, now *int64) []Scored {
	out := make([]Scored, len(candidates))
	resolvedNow := resolveNow(now, cfg)

	for i, c := range candidates {
		raw := clamp01(float64(c.RawScore))
		var temporal float64
		if cfg.Enabled && c.Timestamp != nil {
			temporal = cfg.score(*c.Timestamp, resolvedNow)
		}

		var final float64
		if cfg.Enabled {
			final = clamp01((1-cfg.Weight)*raw + cfg.Weight*temporal)
		} else {
			final = raw
		}

		out[i] = Scored{
			Candidate:     c,
			TemporalScore: float32(temporal),
			FinalScore:    float32(final),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}
