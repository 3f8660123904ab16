// Package tools implements the four read-only tool-surface operations:
// query_graph, inspect_note, long_range_links, graph_summary. Each loads a
// snapshot fresh, runs the underlying query against pkg/smg, and renders a
// bounded, human-scannable Markdown table. Errors never reach the caller
// as Go errors from the exported entry points - they are rendered as
// "Error: ..." lines, matching the specification's tool-boundary contract.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/persistence"
)

const (
	queryGraphMaxTopK      = 50
	inspectNoteMaxTopK     = 25
	longRangeLinksMaxTopK  = 100
	snippetMinChars        = 40
	snippetMaxChars        = 300
)

func clampTopK(topK, max int) int {
	if topK < 1 {
		return 1
	}
	if topK > max {
		return max
	}
	return topK
}

func clampSnippetChars(n int) int {
	if n < snippetMinChars {
		return snippetMinChars
	}
	if n > snippetMaxChars {
		return snippetMaxChars
	}
	return n
}

// escapePipe makes a string safe to embed in a Markdown table cell.
func escapePipe(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func snippet(s string, maxChars int) string {
	maxChars = clampSnippetChars(maxChars)
	if len(s) <= maxChars {
		return escapePipe(s)
	}
	return escapePipe(s[:maxChars]) + "…"
}

func renderError(op string, err error) string {
	if kind, ok := smgerrors.Of(err); ok {
		return fmt.Sprintf("Error: %s: %s", op, kind)
	}
	return fmt.Sprintf("Error: %s: %v", op, err)
}

// QueryGraph loads the snapshot at snapshotPath, embeds query, retrieves up
// to topK ranked turns, and renders them as a Markdown table of
// (rank, turn_id, note_id, score, snippet).
func QueryGraph(ctx context.Context, snapshotPath, query string, topK, snippetChars int) string {
	const op = "tools.query_graph"
	topK = clampTopK(topK, queryGraphMaxTopK)

	g, err := persistence.LoadGraph(snapshotPath)
	if err != nil {
		return renderError(op, err)
	}

	scored, err := g.RetrieveCandidates(ctx, query, topK)
	if err != nil {
		return renderError(op, err)
	}

	var b strings.Builder
	b.WriteString("| rank | turn_id | note_id | score | snippet |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, c := range scored {
		if i >= topK {
			break
		}
		text := ""
		if n, err := g.Store.Get(c.NoteID); err == nil {
			text = n.Context
		}
		fmt.Fprintf(&b, "| %d | %d | %d | %.4f | %s |\n",
			i+1, c.TurnID, c.NoteID, c.RawScore, snippet(text, snippetChars))
	}
	return b.String()
}

// InspectNote renders one note's detail, including its related-note links,
// truncated to topK related links.
func InspectNote(snapshotPath string, noteID uint32, topK, snippetChars int) string {
	const op = "tools.inspect_note"
	topK = clampTopK(topK, inspectNoteMaxTopK)

	g, err := persistence.LoadGraph(snapshotPath)
	if err != nil {
		return renderError(op, err)
	}

	n, err := g.Store.Get(noteID)
	if err != nil {
		return renderError(op, err)
	}
	related, err := g.GetRelatedNoteLinks(noteID, topK)
	if err != nil {
		return renderError(op, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "| field | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| note_id | %d |\n", n.NoteID)
	fmt.Fprintf(&b, "| context | %s |\n", snippet(n.Context, snippetChars))
	fmt.Fprintf(&b, "| norm | %.4f |\n", n.Norm)
	fmt.Fprintf(&b, "| source_turn_ids | %s |\n", joinUint64s(n.SourceTurnIDs))
	if len(n.SourceTimestamps) > 0 {
		oldest := n.SourceTimestamps[0]
		for _, t := range n.SourceTimestamps {
			if t < oldest {
				oldest = t
			}
		}
		fmt.Fprintf(&b, "| oldest_source_age | %s |\n", humanize.Time(unixToTime(oldest)))
	}
	b.WriteString("\n| related_note_id | similarity |\n|---|---|\n")
	for _, r := range related {
		fmt.Fprintf(&b, "| %d | %.4f |\n", r.NoteID, r.Similarity)
	}
	return b.String()
}

// LongRangeLinks renders the graph's global long-range link list, truncated
// to topK.
func LongRangeLinks(snapshotPath string, topK int) string {
	const op = "tools.long_range_links"
	topK = clampTopK(topK, longRangeLinksMaxTopK)

	g, err := persistence.LoadGraph(snapshotPath)
	if err != nil {
		return renderError(op, err)
	}

	links := g.GetLongRangeLinks(topK)
	var b strings.Builder
	b.WriteString("| note_id_a | note_id_b | similarity |\n|---|---|---|\n")
	for _, l := range links {
		fmt.Fprintf(&b, "| %d | %d | %.4f |\n", l.A, l.B, l.Similarity)
	}
	return b.String()
}

// GraphSummary renders aggregate graph statistics: note count, cluster
// count, per-cluster size, and long-range link count.
func GraphSummary(snapshotPath string) string {
	const op = "tools.graph_summary"

	g, err := persistence.LoadGraph(snapshotPath)
	if err != nil {
		return renderError(op, err)
	}

	snap := g.SnapshotState()
	clusterSizes := map[int]int{}
	for _, label := range snap.ClusterLabels {
		clusterSizes[label]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| notes | %s |\n", humanize.Comma(int64(g.Store.Len())))
	fmt.Fprintf(&b, "| clusters | %d |\n", len(snap.ClusterCentroids))
	fmt.Fprintf(&b, "| long_range_links | %s |\n", humanize.Comma(int64(len(snap.LongRangeLinks))))

	if len(snap.ClusterCentroids) > 0 {
		b.WriteString("\n| cluster_id | size |\n|---|---|\n")
		for _, id := range persistence.SortedClusterIDs(snap.ClusterCentroids) {
			fmt.Fprintf(&b, "| %d | %d |\n", id, clusterSizes[id])
		}
	}
	return b.String()
}

func joinUint64s(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func unixToTime(sec uint64) time.Time {
	return time.Unix(int64(sec), 0)
}
