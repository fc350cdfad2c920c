package council

import "context"

// CollectResponses runs stage 1: fan the query out to every council model
// concurrently, wait for all calls to settle, and keep the successes in the
// original roster order. Failed calls are dropped silently; an empty result
// is a valid outcome the caller must handle, not an error.
func (p *Pipeline) CollectResponses(ctx context.Context, query string) []CandidateResponse {
	results := p.caller.QueryModelsParallel(ctx, p.models, stage1Messages(query))

	candidates := make([]CandidateResponse, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			p.logger.WithStage("stage1").WithModel(res.Model).Warn("dropping failed call", "error", res.Err.Error())
			continue
		}
		if res.Response == nil || res.Response.Content == "" {
			p.logger.WithStage("stage1").WithModel(res.Model).Warn("dropping empty response")
			continue
		}
		candidates = append(candidates, CandidateResponse{
			Model:    res.Model,
			Response: res.Response.Content,
		})
	}

	p.logger.WithStage("stage1").Info("collected responses",
		"requested", len(p.models), "survived", len(candidates))
	return candidates
}
