// Package segment implements the commit-message segmenter: a
// three-strategy heuristic cascade (conventional-header, bullet,
// paragraph) that splits one raw record into ordered logical sub-records
// when it reports on several independent changes. Grounded on
// _examples/original_source/crates/spectral-cortex-cli/src/git_commit_split.rs.
package segment

import (
	"strings"

	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
)

// Mode selects how aggressively the cascade's result is trusted.
type Mode int

const (
	ModeOff Mode = iota
	ModeAuto
	ModeStrict
)

// ParseMode records which strategy produced a segment.
type ParseMode int

const (
	ParseModeConventionalHeader ParseMode = iota
	ParseModeBulletGrouped
	ParseModeParagraphFallback
)

// ModeFromString validates a mode name from config/CLI input.
func ModeFromString(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "off":
		return ModeOff, nil
	case "auto":
		return ModeAuto, nil
	case "strict":
		return ModeStrict, nil
	default:
		return 0, smgerrors.New("segment.ModeFromString", smgerrors.InvalidConfig,
			&unsupportedModeErr{s})
	}
}

type unsupportedModeErr struct{ mode string }

func (e *unsupportedModeErr) Error() string {
	return "unsupported commit-split mode '" + e.mode + "'; supported: off|auto|strict"
}

// Segment is one logical sub-record split out of a raw message.
type Segment struct {
	Header     string
	Details    []string
	Confidence float32
	ParseMode  ParseMode
}

// Content joins header and details back into a single string, trimming
// each line and dropping empties - the shape ingest hands to the embedder.
func (s Segment) Content() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.Header))
	for _, d := range s.Details {
		if t := strings.TrimSpace(d); t != "" {
			b.WriteByte('\n')
			b.WriteString(t)
		}
	}
	return b.String()
}

// Config configures one call to Split.
type Config struct {
	Mode          Mode
	MaxSegments   int
	MinConfidence float32
}

// DefaultConfig returns Auto mode, 6 max segments, 0.75 minimum confidence.
func DefaultConfig() Config {
	return Config{Mode: ModeAuto, MaxSegments: 6, MinConfidence: 0.75}
}

// Stats accumulates counters across repeated Split calls sharing one
// Stats value (pass a pointer into Split to tally across a whole ingest run).
type Stats struct {
	CommitsSeen            int
	CommitsSplit           int
	TotalSegmentsEmitted   int
	FallbackToSingle       int
	SegmentsFromHeaders    int
	SegmentsFromBullets    int
	SegmentsFromParagraphs int
}

// Split runs the three-strategy cascade over message under cfg, updating
// stats (which may be nil to skip tallying) and returning the resulting
// segments in order.
func Split(message string, cfg Config, stats *Stats) []Segment {
	if stats != nil {
		stats.CommitsSeen++
	}

	if cfg.Mode == ModeOff {
		recordFallback(stats)
		return fallbackSingleSegment(message)
	}

	maxSegments := cfg.MaxSegments
	if maxSegments < 1 {
		maxSegments = 1
	}

	lines := strings.Split(message, "\n")
	segments := splitByConventionalHeaders(lines, maxSegments)
	if segments == nil {
		segments = splitByBullets(lines, maxSegments)
	}
	if segments == nil {
		segments = splitByParagraphs(message, maxSegments)
	}

	if segments == nil {
		recordFallback(stats)
		return fallbackSingleSegment(message)
	}

	var avgConf float32
	for _, s := range segments {
		avgConf += s.Confidence
	}
	avgConf /= float32(len(segments))

	keep := false
	switch cfg.Mode {
	case ModeStrict:
		keep = true
	case ModeAuto:
		keep = avgConf >= cfg.MinConfidence
	}

	if !keep {
		recordFallback(stats)
		return fallbackSingleSegment(message)
	}

	if stats != nil {
		stats.CommitsSplit++
		stats.TotalSegmentsEmitted += len(segments)
		for _, s := range segments {
			switch s.ParseMode {
			case ParseModeConventionalHeader:
				stats.SegmentsFromHeaders++
			case ParseModeBulletGrouped:
				stats.SegmentsFromBullets++
			case ParseModeParagraphFallback:
				stats.SegmentsFromParagraphs++
			}
		}
	}
	return segments
}

func recordFallback(stats *Stats) {
	if stats == nil {
		return
	}
	stats.TotalSegmentsEmitted++
	stats.FallbackToSingle++
}

func isConventionalHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	colonPos := strings.IndexByte(trimmed, ':')
	if colonPos <= 0 || colonPos+1 >= len(trimmed) {
		return false
	}
	prefix := trimmed[:colonPos]
	message := strings.TrimSpace(trimmed[colonPos+1:])
	if message == "" {
		return false
	}
	first := prefix[0]
	if !isASCIILetter(first) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !isHeaderPrefixChar(c) {
			return false
		}
	}
	return true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isHeaderPrefixChar(c byte) bool {
	if isASCIILetter(c) || (c >= '0' && c <= '9') {
		return true
	}
	switch c {
	case '(', ')', '-', '_', '/':
		return true
	}
	return false
}

func splitByConventionalHeaders(lines []string, maxSegments int) []Segment {
	var headerIdx []int
	for i, l := range lines {
		if isConventionalHeader(l) {
			headerIdx = append(headerIdx, i)
		}
	}
	if len(headerIdx) < 2 {
		return nil
	}

	var segments []Segment
	for hi, start := range headerIdx {
		if len(segments) >= maxSegments {
			break
		}
		end := len(lines)
		if hi+1 < len(headerIdx) {
			end = headerIdx[hi+1]
		}
		header := strings.TrimSpace(lines[start])
		var details []string
		for _, l := range lines[start+1 : end] {
			if t := strings.TrimSpace(l); t != "" {
				details = append(details, t)
			}
		}
		segments = append(segments, Segment{
			Header:     header,
			Details:    details,
			Confidence: 0.95,
			ParseMode:  ParseModeConventionalHeader,
		})
	}
	if len(segments) >= 2 {
		return segments
	}
	return nil
}

func isBulletLine(trimmed string) bool {
	return len(trimmed) >= 3 && (strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "))
}

func splitByBullets(lines []string, maxSegments int) []Segment {
	var bullets []string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if !isBulletLine(trimmed) {
			continue
		}
		b := strings.TrimSpace(trimmed[2:])
		if len(b) >= 8 {
			bullets = append(bullets, b)
		}
	}
	if len(bullets) < 2 {
		return nil
	}
	if len(bullets) > maxSegments {
		bullets = bullets[:maxSegments]
	}
	segments := make([]Segment, len(bullets))
	for i, b := range bullets {
		segments[i] = Segment{Header: b, Confidence: 0.80, ParseMode: ParseModeBulletGrouped}
	}
	if len(segments) >= 2 {
		return segments
	}
	return nil
}

func splitByParagraphs(message string, maxSegments int) []Segment {
	rawParas := strings.Split(message, "\n\n")
	var paras []string
	for _, p := range rawParas {
		if t := strings.TrimSpace(p); t != "" {
			paras = append(paras, t)
		}
	}
	if len(paras) < 2 {
		return nil
	}

	substantial := 0
	for _, p := range paras {
		if len(strings.Fields(p)) >= 4 {
			substantial++
		}
	}
	if substantial < 2 {
		return nil
	}

	if len(paras) > maxSegments {
		paras = paras[:maxSegments]
	}

	var segments []Segment
	for _, p := range paras {
		var nonEmpty []string
		for _, l := range strings.Split(p, "\n") {
			if t := strings.TrimSpace(l); t != "" {
				nonEmpty = append(nonEmpty, t)
			}
		}
		if len(nonEmpty) == 0 {
			continue
		}
		segments = append(segments, Segment{
			Header:     nonEmpty[0],
			Details:    nonEmpty[1:],
			Confidence: 0.65,
			ParseMode:  ParseModeParagraphFallback,
		})
	}
	if len(segments) >= 2 {
		return segments
	}
	return nil
}

func fallbackSingleSegment(message string) []Segment {
	var nonEmpty []string
	for _, l := range strings.Split(message, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	header := message
	var details []string
	if len(nonEmpty) > 0 {
		header = nonEmpty[0]
		details = nonEmpty[1:]
	}
	return []Segment{{
		Header:     strings.TrimSpace(header),
		Details:    details,
		Confidence: 1.0,
		ParseMode:  ParseModeParagraphFallback,
	}}
}
