// Package council implements the three-stage deliberation pipeline.
//
// # Stages
//
// Stage 1 fans the user's query out to every council model concurrently and
// collects the answers that arrive; failed calls are dropped, never retried.
// Stage 2 anonymizes the surviving answers behind sequential labels, asks the
// same roster to rank them blind, parses the free-text rankings, and
// aggregates them into per-model average ranks. Stage 3 hands the query, the
// answers, and the aggregate to the chairman model for a final synthesis.
//
// Stages run strictly in sequence: each consumes the full output of the one
// before it. The only concurrency lives inside the stage-1 and stage-2
// fan-outs, where every call writes to its own result slot and the stage
// settles on a barrier.
//
// # Usage
//
//	p := council.NewPipeline(caller, roster, chairman, logger)
//	result, _ := p.Run(ctx, "what is the best database?")
//
// For streaming consumers, [Pipeline.RunStream] emits ordered milestone
// events through a callback as each stage completes.
package council
