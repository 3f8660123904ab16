package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitOffKeepsSingleSegment(t *testing.T) {
	var stats Stats
	message := "refactor: use dependency injection\nfix: add failure logs"
	parts := Split(message, Config{Mode: ModeOff, MaxSegments: 6, MinConfidence: 0.75}, &stats)
	assert.Len(t, parts, 1)
	assert.Equal(t, 0, stats.CommitsSplit)
	assert.Equal(t, 1, stats.FallbackToSingle)
}

func TestSplitAutoDetectsConventionalHeaders(t *testing.T) {
	var stats Stats
	message := "refactor: use dependency injection\n- inject payment service\nfix: add failure logs"
	parts := Split(message, Config{Mode: ModeAuto, MaxSegments: 6, MinConfidence: 0.75}, &stats)
	assert.Len(t, parts, 2)
	assert.Equal(t, 1, stats.CommitsSplit)
	assert.Equal(t, 2, stats.TotalSegmentsEmitted)
}

func TestSplitAutoFallsBackBelowConfidence(t *testing.T) {
	var stats Stats
	message := "first paragraph has several words for context\n\nsecond paragraph is also substantial text"
	parts := Split(message, Config{Mode: ModeAuto, MaxSegments: 6, MinConfidence: 0.9}, &stats)
	assert.Len(t, parts, 1)
	assert.Equal(t, 0, stats.CommitsSplit)
	assert.Equal(t, 1, stats.FallbackToSingle)
}

func TestSplitStrictAcceptsParagraphFallback(t *testing.T) {
	var stats Stats
	message := "first paragraph has several words for context\n\nsecond paragraph is also substantial text"
	parts := Split(message, Config{Mode: ModeStrict, MaxSegments: 6, MinConfidence: 0.75}, &stats)
	assert.Len(t, parts, 2)
	assert.Equal(t, 1, stats.CommitsSplit)
}

func TestSplitRespectsSegmentCap(t *testing.T) {
	var stats Stats
	message := "fix: one\nfix: two\nfix: three\nfix: four"
	parts := Split(message, Config{Mode: ModeStrict, MaxSegments: 2, MinConfidence: 0.75}, &stats)
	assert.Len(t, parts, 2)
	assert.Equal(t, 2, stats.TotalSegmentsEmitted)
}

func TestModeFromStringRejectsUnknown(t *testing.T) {
	_, err := ModeFromString("bogus")
	assert.Error(t, err)
}

func TestSplitOffEmptyInputYieldsOneEmptySegment(t *testing.T) {
	parts := Split("", Config{Mode: ModeOff, MaxSegments: 6, MinConfidence: 0.75}, nil)
	assert.Len(t, parts, 1)
	assert.Equal(t, "", parts[0].Header)
}
