package council

// ErrorModel is the sentinel model identifier used when the pipeline cannot
// produce a genuine synthesis (every stage-1 call failed).
const ErrorModel = "error"

// Fallback texts for the two places the pipeline substitutes a message for a
// missing model response.
const (
	// FallbackSynthesisText replaces the chairman's answer when the
	// synthesis call fails or returns nothing.
	FallbackSynthesisText = "Unable to synthesize a final answer. The chairman model did not return a response."

	// NoCandidatesText is the terminal result when no council model
	// answered in stage 1.
	NoCandidatesText = "Unable to get responses from council models. Please check your API key and model configuration."
)

// CandidateResponse is one council model's answer from stage 1. The sequence
// of candidates preserves the order calls were issued, not completion order.
type CandidateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// JudgeRanking is one judge's verdict from stage 2. Ranking always retains
// the raw text; ParsedRanking is empty when the text yields no resolvable
// labels.
type JudgeRanking struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking"`
	ParsedRanking []string `json:"parsed_ranking"`
}

// AggregateEntry is a model's aggregate standing across all judges that
// ranked it. Models no judge mentioned are excluded entirely rather than
// assigned a worst-case rank.
type AggregateEntry struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// SynthesisResult is the stage-3 output. There is always exactly one per
// run; Response is either a genuine synthesis or a fixed fallback message.
type SynthesisResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Metadata carries the attribution map and aggregate standings alongside a
// result.
type Metadata struct {
	LabelToModel      map[string]string `json:"label_to_model"`
	AggregateRankings []AggregateEntry  `json:"aggregate_rankings"`
}

// Result ties together everything one pipeline run produced. It is built
// fresh per run and discarded once the caller has consumed it.
type Result struct {
	Query      string              `json:"query"`
	Candidates []CandidateResponse `json:"candidates"`
	Rankings   []JudgeRanking      `json:"rankings"`
	Synthesis  SynthesisResult     `json:"synthesis"`
	Metadata   Metadata            `json:"metadata"`
}
