package smg

import (
	"context"

	"github.com/mrorigo/spectral-cortex/pkg/embed"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/indexing"
	"github.com/mrorigo/spectral-cortex/pkg/security"
)

// sanitizeContent runs imported record text through the same two-stage
// cleanup the teacher applies to imported node properties: encoding/control
// character repair, then a defensive strip of anything the embedder or a
// downstream Markdown tool render would choke on.
func sanitizeContent(text string) string {
	return security.SanitizeString(indexing.SanitizeText(text))
}

// IngestTurn embeds a single record and folds it into a brand-new note,
// returning the allocated note_id.
func (s *Store) IngestTurn(ctx context.Context, rec Record) (uint32, error) {
	const op = "smg.IngestTurn"
	rec.Content = sanitizeContent(rec.Content)
	vec, err := embed.EmbedOne(ctx, rec.Content)
	if err != nil {
		return 0, smgerrors.New(op, smgerrors.EmbedFailure, err)
	}
	return s.InsertEmbedded(rec, Vector(vec)), nil
}

// IngestTurnsBatch embeds a batch of records via embed.EmbedBatch and
// inserts one fresh note per record, preserving the spec's progress
// convention: the embedding phase reports fractions in [0, 0.5], and note
// reconstruction reports [0.5, 1.0].
func (s *Store) IngestTurnsBatch(ctx context.Context, recs []Record, progress embed.ProgressFunc) ([]uint32, error) {
	const op = "smg.IngestTurnsBatch"
	if len(recs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(recs))
	for i, r := range recs {
		recs[i].Content = sanitizeContent(r.Content)
		texts[i] = recs[i].Content
	}

	embedProgress := func(msg string, frac float64) {
		if progress != nil {
			progress(msg, frac*0.5)
		}
	}
	vectors, err := embed.EmbedBatch(ctx, texts, embedProgress)
	if err != nil {
		return nil, smgerrors.New(op, smgerrors.EmbedFailure, err)
	}

	ids := make([]uint32, len(recs))
	for i, r := range recs {
		ids[i] = s.InsertEmbedded(r, Vector(vectors[i]))
		if progress != nil {
			frac := 0.5 + 0.5*float64(i+1)/float64(len(recs))
			progress("reconstructing notes", frac)
		}
	}
	return ids, nil
}
