package council

import (
	"context"

	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/openrouter"
	"github.com/Iron-Ham/quorum/internal/stream"
)

// Pipeline runs the three-stage council deliberation. A Pipeline is immutable
// after construction and safe for concurrent runs; all per-run state lives on
// the stack of Run or RunStream.
type Pipeline struct {
	caller   openrouter.Caller
	models   []string
	chairman string
	logger   *logging.Logger
}

// NewPipeline creates a pipeline over the given council roster and chairman.
// The caller abstracts the model backend so tests can substitute a fake.
func NewPipeline(caller openrouter.Caller, models []string, chairman string, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pipeline{
		caller:   caller,
		models:   models,
		chairman: chairman,
		logger:   logger,
	}
}

// Run executes all three stages and returns the combined result. When every
// stage-1 call fails, the run short-circuits: stages 2 and 3 are skipped and
// the synthesis carries the sentinel model with a fixed explanatory message.
// Run itself fails only when the context is done.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	return p.RunStream(ctx, query, nil)
}

// RunStream executes the pipeline like Run while emitting ordered milestone
// events through emit as each stage starts and completes. A nil emit disables
// streaming. A non-nil error from emit aborts the run; the partial result is
// discarded.
func (p *Pipeline) RunStream(ctx context.Context, query string, emit func(stream.Event) error) (*Result, error) {
	send := func(ev stream.Event) error {
		if emit == nil {
			return nil
		}
		return emit(ev)
	}

	if err := send(stream.NewEvent(stream.KindStage1Start)); err != nil {
		return nil, err
	}
	candidates := p.CollectResponses(ctx, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := send(stream.NewStage1Complete(candidatePayloads(candidates))); err != nil {
		return nil, err
	}

	if err := send(stream.NewEvent(stream.KindStage2Start)); err != nil {
		return nil, err
	}
	rankings, labelToModel := p.CollectRankings(ctx, query, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aggregate := Aggregate(rankings, labelToModel)
	if len(aggregate) > 0 {
		p.logger.WithStage("stage2").Info("aggregate standings", "standings", formatAggregate(aggregate))
	}
	meta := Metadata{LabelToModel: labelToModel, AggregateRankings: aggregate}
	if err := send(stream.NewStage2Complete(rankingPayloads(rankings), streamMetadata(meta))); err != nil {
		return nil, err
	}

	if err := send(stream.NewEvent(stream.KindStage3Start)); err != nil {
		return nil, err
	}
	var synthesis SynthesisResult
	if len(candidates) == 0 {
		// Nothing to deliberate over. Skip the chairman call and surface
		// the failure as the final answer.
		p.logger.WithStage("stage3").Warn("no candidates survived stage 1, skipping synthesis")
		synthesis = SynthesisResult{Model: ErrorModel, Response: NoCandidatesText}
	} else {
		synthesis = p.Synthesize(ctx, query, candidates, aggregate)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := send(stream.NewStage3Complete(stream.SynthesisPayload{
		Model:    synthesis.Model,
		Response: synthesis.Response,
	})); err != nil {
		return nil, err
	}

	return &Result{
		Query:      query,
		Candidates: candidates,
		Rankings:   rankings,
		Synthesis:  synthesis,
		Metadata:   meta,
	}, nil
}

func candidatePayloads(candidates []CandidateResponse) []stream.CandidatePayload {
	out := make([]stream.CandidatePayload, len(candidates))
	for i, c := range candidates {
		out[i] = stream.CandidatePayload{Model: c.Model, Response: c.Response}
	}
	return out
}

func rankingPayloads(rankings []JudgeRanking) []stream.RankingPayload {
	out := make([]stream.RankingPayload, len(rankings))
	for i, r := range rankings {
		out[i] = stream.RankingPayload{Model: r.Model, Ranking: r.Ranking, ParsedRanking: r.ParsedRanking}
	}
	return out
}

func streamMetadata(meta Metadata) stream.Metadata {
	agg := make([]stream.AggregatePayload, len(meta.AggregateRankings))
	for i, e := range meta.AggregateRankings {
		agg[i] = stream.AggregatePayload{Model: e.Model, AverageRank: e.AverageRank, RankingsCount: e.RankingsCount}
	}
	return stream.Metadata{LabelToModel: meta.LabelToModel, AggregateRankings: agg}
}
