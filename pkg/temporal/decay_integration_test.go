package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(v uint64) *uint64 { return &v }

func TestExponentialHalfLife(t *testing.T) {
	cfg := Config{Enabled: true, Weight: 1.0, Mode: ModeExponential, HalfLifeSeconds: 10}
	now := int64(10)
	out := Rerank([]Candidate{{TurnID: 1, RawScore: 0, Timestamp: ts(0)}}, cfg, &now)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].TemporalScore, 1e-6)
}

func TestLinearWindowHalf(t *testing.T) {
	cfg := Config{Enabled: true, Weight: 1.0, Mode: ModeLinearWindow, WindowSeconds: 100}
	now := int64(50)
	out := Rerank([]Candidate{{TurnID: 1, Timestamp: ts(0)}}, cfg, &now)
	assert.InDelta(t, 0.5, out[0].TemporalScore, 1e-9)
}

func TestBuckets(t *testing.T) {
	cfg := Config{
		Enabled: true, Weight: 1.0, Mode: ModeBuckets,
		Buckets: []Bucket{
			{MaxAgeSeconds: 86400, Score: 1.0},
			{MaxAgeSeconds: 7 * 86400, Score: 0.6},
			{MaxAgeSeconds: 30 * 86400, Score: 0.3},
		},
	}
	now := int64(100 * 86400)
	ages := []int64{3600, 3 * 86400, 20 * 86400, 100 * 86400}
	want := []float32{1.0, 0.6, 0.3, 0.0}
	for i, age := range ages {
		out := Rerank([]Candidate{{TurnID: uint64(i), Timestamp: ts(uint64(now - age))}}, cfg, &now)
		assert.InDelta(t, want[i], out[0].TemporalScore, 1e-9)
	}
}

func TestDisabledIsIdempotent(t *testing.T) {
	cfg := Config{Enabled: false}
	cands := []Candidate{
		{TurnID: 1, RawScore: 0.4, Timestamp: ts(10)},
		{TurnID: 2, RawScore: 0.9, Timestamp: ts(20)},
	}
	once := Rerank(cands, cfg, nil)
	again := make([]Candidate, len(once))
	for i, s := range once {
		again[i] = s.Candidate
	}
	twice := Rerank(again, cfg, nil)
	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].FinalScore, twice[i].FinalScore)
	}
}

func TestOrderingFlip(t *testing.T) {
	now := int64(90 * 86400)
	cfg := Config{Enabled: true, Weight: 0.30, Mode: ModeExponential, HalfLifeSeconds: 14 * 86400}
	cands := []Candidate{
		{TurnID: 1, RawScore: 0.90, Timestamp: ts(uint64(now - 60*86400))},
		{TurnID: 2, RawScore: 0.85, Timestamp: ts(uint64(now - 2*86400))},
		{TurnID: 3, RawScore: 0.80, Timestamp: ts(uint64(now - 1*86400))},
	}
	out := Rerank(cands, cfg, &now)
	require.Len(t, out, 3)
	assert.NotEqual(t, uint64(1), out[0].TurnID)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].FinalScore, out[i-1].FinalScore)
	}
}

func TestMissingTimestampScoresZero(t *testing.T) {
	cfg := DefaultConfig()
	out := Rerank([]Candidate{{TurnID: 1, RawScore: 0.5, Timestamp: nil}}, cfg, nil)
	assert.Equal(t, float32(0), out[0].TemporalScore)
}
