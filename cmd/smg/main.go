// Command smg is the CLI surface for the Spectral Memory Graph library:
// ingest, update, query, note, and mcp subcommands, wrapping pkg/smg,
// pkg/persistence, pkg/segment, and pkg/tools. The version-control reader
// that actually produces commit records, and the network transport the mcp
// subcommand's protocol rides on, are external collaborators out of scope
// for this repository (see SPEC_FULL.md); this command only wires the core.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mrorigo/spectral-cortex/pkg/config"
	"github.com/mrorigo/spectral-cortex/pkg/embed"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/persistence"
	"github.com/mrorigo/spectral-cortex/pkg/segment"
	"github.com/mrorigo/spectral-cortex/pkg/smg"
	"github.com/mrorigo/spectral-cortex/pkg/smglog"
	"github.com/mrorigo/spectral-cortex/pkg/tools"
	"github.com/spf13/cobra"
)

var log = smglog.Component("cmd")

func main() {
	var cfgPath, snapshotPath string

	root := &cobra.Command{
		Use:   "smg",
		Short: "smg — spectral memory graph CLI",
		Long:  "Ingests short text records, builds a spectral memory graph, and answers recency-aware similarity queries.",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config overlay")
	root.PersistentFlags().StringVar(&snapshotPath, "snapshot", "smg.snapshot.json", "path to the graph snapshot file")

	loadCfg := func() *config.Config {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}

	root.AddCommand(
		ingestCmd(&snapshotPath, loadCfg, false),
		ingestCmd(&snapshotPath, loadCfg, true),
		queryCmd(&snapshotPath, loadCfg),
		noteCmd(&snapshotPath),
		mcpCmd(&snapshotPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// record mirrors the record-source contract: { turn_id, speaker, content,
// topic, entities, commit_id?, timestamp }, read one JSON object per line
// from stdin.
type record struct {
	TurnID    uint64   `json:"turn_id"`
	Speaker   string   `json:"speaker"`
	Content   string   `json:"content"`
	Topic     string   `json:"topic"`
	Entities  []string `json:"entities"`
	CommitID  *string  `json:"commit_id"`
	Timestamp uint64   `json:"timestamp"`
}

func ingestCmd(snapshotPath *string, loadCfg func() *config.Config, isUpdate bool) *cobra.Command {
	use := "ingest"
	short := "Ingest records from stdin (one JSON object per line) and rebuild the graph"
	if isUpdate {
		use = "update"
		short = "Load the existing snapshot, append records from stdin, and fully rebuild the graph"
	}

	var splitMode string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			mode, err := segment.ModeFromString(splitMode)
			if err != nil {
				return err
			}
			segCfg := cfg.Segmenter.ToSegmentConfig()
			segCfg.Mode = mode

			var g *smg.Graph
			if isUpdate {
				var err error
				g, err = persistence.LoadGraph(*snapshotPath)
				if err != nil {
					return err
				}
			} else {
				g = smg.NewGraph()
			}

			if err := initEmbedder(cfg); err != nil {
				return err
			}
			defer embed.Shutdown()

			recs, err := readRecords(os.Stdin, segCfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			progress := func(msg string, frac float64) {
				log.Info().Str("phase", "ingest").Str("msg", msg).Float64("fraction", frac).Send()
			}
			if _, err := g.Store.IngestTurnsBatch(ctx, recs, progress); err != nil {
				return err
			}

			specCfg := cfg.Spectral.ToSpectralConfig()
			g.BuildSpectralStructure(specCfg, func(msg string, frac float64) {
				log.Info().Str("phase", "build").Str("msg", msg).Float64("fraction", frac).Send()
			})

			if err := persistence.SaveGraph(*snapshotPath, g); err != nil {
				return err
			}
			fmt.Printf("ingested %d records in %d notes; build took %s\n", len(recs), g.Store.Len(), g.LastBuildDuration())
			return nil
		},
	}
	cmd.Flags().StringVar(&splitMode, "git-commit-split-mode", "auto", "commit segmenter mode: off|auto|strict")
	return cmd
}

func readRecords(f *os.File, segCfg segment.Config) ([]smg.Record, error) {
	var out []smg.Record
	var stats segment.Stats
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, smgerrors.New("cmd.readRecords", smgerrors.InvalidConfig, err)
		}
		for _, seg := range segment.Split(r.Content, segCfg, &stats) {
			out = append(out, smg.Record{
				TurnID:    r.TurnID,
				Speaker:   r.Speaker,
				Content:   seg.Content(),
				Topic:     r.Topic,
				Entities:  r.Entities,
				CommitID:  r.CommitID,
				Timestamp: r.Timestamp,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, smgerrors.New("cmd.readRecords", smgerrors.IoFailure, err)
	}
	return out, nil
}

func queryCmd(snapshotPath *string, loadCfg func() *config.Config) *cobra.Command {
	var topK int
	var timeStartStr, timeEndStr string
	var timeWindowDays int

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Query the graph for the top-k most relevant records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			if err := initEmbedder(cfg); err != nil {
				return err
			}
			defer embed.Shutdown()

			timeStart, timeEnd, err := resolveTimeBounds(timeStartStr, timeEndStr, timeWindowDays)
			if err != nil {
				return err
			}

			if timeStart == nil && timeEnd == nil {
				fmt.Print(tools.QueryGraph(context.Background(), *snapshotPath, args[0], topK, 200))
				return nil
			}

			g, err := persistence.LoadGraph(*snapshotPath)
			if err != nil {
				return err
			}
			scored, err := g.RetrieveWithScoresConfigFiltered(context.Background(), args[0], topK, cfg.Temporal.ToTemporalConfig(), timeStart, timeEnd)
			if err != nil {
				return err
			}
			fmt.Printf("| turn_id | final_score |\n|---|---|\n")
			for _, s := range scored {
				fmt.Printf("| %d | %.4f |\n", s.TurnID, s.FinalScore)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results to return")
	cmd.Flags().StringVar(&timeStartStr, "time-start", "", "RFC3339 lower time bound")
	cmd.Flags().StringVar(&timeEndStr, "time-end", "", "RFC3339 upper time bound")
	cmd.Flags().IntVar(&timeWindowDays, "time-window-days", 0, "alternative to --time-start: now - window")
	return cmd
}

func resolveTimeBounds(startStr, endStr string, windowDays int) (*int64, *int64, error) {
	var start, end *int64
	if windowDays > 0 {
		s := time.Now().AddDate(0, 0, -windowDays).Unix()
		start = &s
	}
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, nil, smgerrors.New("cmd.resolveTimeBounds", smgerrors.InvalidConfig, err)
		}
		s := t.Unix()
		start = &s
	}
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, nil, smgerrors.New("cmd.resolveTimeBounds", smgerrors.InvalidConfig, err)
		}
		e := t.Unix()
		end = &e
	}
	return start, end, nil
}

func noteCmd(snapshotPath *string) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "note [note-id]",
		Short: "Inspect a single note and its related-note links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uint32
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return smgerrors.New("cmd.note", smgerrors.InvalidConfig, err)
			}
			fmt.Print(tools.InspectNote(*snapshotPath, id, topK, 200))
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of related notes to show")
	return cmd
}

// mcpCmd runs a minimal line-delimited stdio JSON-RPC-style dispatcher over
// the four read-only tools. The protocol itself is an external
// collaborator (see SPEC_FULL.md §4.8 / §6); this is the thinnest binding
// that exercises it.
func mcpCmd(snapshotPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the four read-only tools over line-delimited stdio JSON-RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := bufio.NewScanner(os.Stdin)
			enc := json.NewEncoder(os.Stdout)
			for scanner.Scan() {
				var req struct {
					ID     int             `json:"id"`
					Method string          `json:"method"`
					Params json.RawMessage `json:"params"`
				}
				if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
					enc.Encode(map[string]any{"error": "invalid request"})
					continue
				}
				result := dispatchTool(*snapshotPath, req.Method, req.Params)
				enc.Encode(map[string]any{"id": req.ID, "result": result})
			}
			return scanner.Err()
		},
	}
}

func dispatchTool(snapshotPath, method string, params json.RawMessage) string {
	switch method {
	case "query_graph":
		var p struct {
			Query string `json:"query"`
			TopK  int    `json:"top_k"`
		}
		json.Unmarshal(params, &p)
		return tools.QueryGraph(context.Background(), snapshotPath, p.Query, p.TopK, 200)
	case "inspect_note":
		var p struct {
			NoteID uint32 `json:"note_id"`
			TopK   int    `json:"top_k"`
		}
		json.Unmarshal(params, &p)
		return tools.InspectNote(snapshotPath, p.NoteID, p.TopK, 200)
	case "long_range_links":
		var p struct {
			TopK int `json:"top_k"`
		}
		json.Unmarshal(params, &p)
		return tools.LongRangeLinks(snapshotPath, p.TopK)
	case "graph_summary":
		return tools.GraphSummary(snapshotPath)
	default:
		return fmt.Sprintf("Error: unknown method %q", method)
	}
}

func initEmbedder(cfg *config.Config) error {
	embedder, err := cfg.Embedder.ToEmbedder()
	if err != nil {
		return err
	}
	return embed.Init(embedder, cfg.Embedder.Workers, cfg.Embedder.CacheSizePerWorker)
}
