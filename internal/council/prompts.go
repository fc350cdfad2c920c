package council

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/quorum/internal/openrouter"
)

// RankingMarker is the literal delimiter judges are instructed to emit
// before their numbered ranking. The parser keys on its last occurrence.
const RankingMarker = "FINAL RANKING:"

// stage1Messages builds the messages for a council model's first-pass answer.
func stage1Messages(query string) []openrouter.Message {
	return []openrouter.Message{
		{Role: "user", Content: query},
	}
}

// rankingMessages builds the blind-ranking prompt for stage 2. Every judge
// receives the identical prompt: the original query plus each labeled answer,
// with authorship hidden behind the labels.
func rankingMessages(query string, candidates []CandidateResponse, labels []string) []openrouter.Message {
	var sb strings.Builder

	sb.WriteString("You are evaluating anonymized responses to the following question:\n\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	for i, candidate := range candidates {
		fmt.Fprintf(&sb, "%s:\n%s\n\n", labels[i], candidate.Response)
	}

	sb.WriteString("Evaluate each response for accuracy, depth, and clarity. ")
	sb.WriteString("Explain your reasoning, then end your reply with the literal line\n")
	sb.WriteString(RankingMarker)
	sb.WriteString("\nfollowed by a numbered list of the response labels, best first. For example:\n\n")
	sb.WriteString(RankingMarker + "\n1. Response B\n2. Response A\n")

	return []openrouter.Message{
		{Role: "user", Content: sb.String()},
	}
}

// synthesisMessages builds the chairman's prompt for stage 3: the query, all
// candidate answers with attribution restored, and the aggregate standings.
func synthesisMessages(query string, candidates []CandidateResponse, aggregate []AggregateEntry) []openrouter.Message {
	var sb strings.Builder

	sb.WriteString("You are the chairman of a council of AI models. ")
	sb.WriteString("The council was asked:\n\n")
	sb.WriteString(query)
	sb.WriteString("\n\nThe council members answered:\n\n")

	for _, candidate := range candidates {
		fmt.Fprintf(&sb, "--- %s ---\n%s\n\n", candidate.Model, candidate.Response)
	}

	if len(aggregate) > 0 {
		sb.WriteString("Peer review ranked the answers (lower is better):\n")
		for _, entry := range aggregate {
			fmt.Fprintf(&sb, "- %s: average rank %.2f across %d votes\n",
				entry.Model, entry.AverageRank, entry.RankingsCount)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Synthesize the best possible final answer to the original question, ")
	sb.WriteString("drawing on the council's strongest points. Reply with the answer only.")

	return []openrouter.Message{
		{Role: "user", Content: sb.String()},
	}
}

// titleMessages builds the prompt for a short conversation title.
func titleMessages(query string) []openrouter.Message {
	return []openrouter.Message{
		{Role: "user", Content: fmt.Sprintf(
			"Write a title of at most five words for a conversation that starts with this message. "+
				"Reply with the title only, no quotes.\n\n%s", query)},
	}
}
