package council

import "context"

// Synthesize runs stage 3: a single call to the chairman model combining the
// candidate answers and the aggregate standings into one final answer. Stage 3
// never fails the pipeline. A call error or an empty reply yields the fixed
// fallback text instead.
func (p *Pipeline) Synthesize(ctx context.Context, query string, candidates []CandidateResponse, aggregate []AggregateEntry) SynthesisResult {
	resp, err := p.caller.QueryModel(ctx, p.chairman, synthesisMessages(query, candidates, aggregate))
	if err != nil {
		p.logger.WithStage("stage3").WithModel(p.chairman).Warn("synthesis call failed, using fallback", "error", err)
		return SynthesisResult{Model: p.chairman, Response: FallbackSynthesisText}
	}
	if resp == nil || resp.Content == "" {
		p.logger.WithStage("stage3").WithModel(p.chairman).Warn("synthesis reply empty, using fallback")
		return SynthesisResult{Model: p.chairman, Response: FallbackSynthesisText}
	}
	return SynthesisResult{Model: p.chairman, Response: resp.Content}
}
