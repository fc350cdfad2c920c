package council

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// AssignLabels produces the anonymization labels for a candidate sequence:
// "Response A", "Response B", ... in candidate order, plus the label-to-model
// map that is the only channel back from labels to identities. Labels beyond
// the 26th continue as "Response AA", "Response AB", and so on.
func AssignLabels(candidates []CandidateResponse) ([]string, map[string]string) {
	labels := make([]string, len(candidates))
	labelToModel := make(map[string]string, len(candidates))

	for i, candidate := range candidates {
		label := "Response " + alphaLabel(i)
		labels[i] = label
		labelToModel[label] = candidate.Model
	}
	return labels, labelToModel
}

// alphaLabel converts a zero-based index to a spreadsheet-style column name.
func alphaLabel(i int) string {
	var sb strings.Builder
	for i >= 0 {
		sb.WriteByte(byte('A' + i%26))
		i = i/26 - 1
	}
	// Bytes were appended least-significant first.
	runes := []rune(sb.String())
	for l, r := 0, len(runes)-1; l < r; l, r = l+1, r-1 {
		runes[l], runes[r] = runes[r], runes[l]
	}
	return string(runes)
}

// CollectRankings runs stage 2: anonymize the candidates, fan the identical
// ranking prompt out to every judge, and parse each reply. An empty candidate
// sequence short-circuits without issuing any network call. Judges whose
// calls fail are dropped; judges whose text yields no ranking are kept with
// an empty ParsedRanking.
func (p *Pipeline) CollectRankings(ctx context.Context, query string, candidates []CandidateResponse) ([]JudgeRanking, map[string]string) {
	if len(candidates) == 0 {
		return []JudgeRanking{}, map[string]string{}
	}

	labels, labelToModel := AssignLabels(candidates)
	results := p.caller.QueryModelsParallel(ctx, p.models, rankingMessages(query, candidates, labels))

	rankings := make([]JudgeRanking, 0, len(results))
	for _, res := range results {
		if res.Err != nil || res.Response == nil {
			p.logger.WithStage("stage2").WithModel(res.Model).Warn("dropping failed judge call")
			continue
		}
		parsed := ParseRanking(res.Response.Content, labels)
		if len(parsed) == 0 {
			p.logger.WithStage("stage2").WithModel(res.Model).Warn("judge reply had no parseable ranking")
		}
		rankings = append(rankings, JudgeRanking{
			Model:         res.Model,
			Ranking:       res.Response.Content,
			ParsedRanking: parsed,
		})
	}

	p.logger.WithStage("stage2").Info("collected rankings",
		"judges", len(p.models), "survived", len(rankings))
	return rankings, labelToModel
}

// ParseRanking extracts an ordered label sequence from a judge's free-text
// reply. It keys on the last occurrence of the ranking marker, strips leading
// ordinal markers from the lines that follow, and resolves each line to a
// known label by exact match first, then substring match. Unresolvable lines
// are skipped; a label is counted only at its first occurrence. Absence of
// the marker yields an empty sequence; the raw text stays with the caller.
func ParseRanking(text string, labels []string) []string {
	idx := strings.LastIndex(text, RankingMarker)
	if idx < 0 {
		return nil
	}

	var parsed []string
	seen := make(map[string]bool, len(labels))

	for _, line := range strings.Split(text[idx+len(RankingMarker):], "\n") {
		line = stripOrdinal(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		label, ok := resolveLabel(line, labels)
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		parsed = append(parsed, label)
	}
	return parsed
}

// stripOrdinal removes a leading ordinal marker such as "1.", "2)", or "3:".
func stripOrdinal(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return line
	}
	if i < len(line) && (line[i] == '.' || line[i] == ')' || line[i] == ':') {
		i++
	}
	return strings.TrimSpace(line[i:])
}

// resolveLabel matches a cleaned line against the known labels: exact match
// wins, otherwise the longest label the line contains. Longer labels are
// checked first so "Response AA" is not claimed by its "Response A" prefix.
func resolveLabel(line string, labels []string) (string, bool) {
	for _, label := range labels {
		if line == label {
			return label, true
		}
	}
	ordered := append([]string(nil), labels...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, label := range ordered {
		if strings.Contains(line, label) {
			return label, true
		}
	}
	return "", false
}

// Aggregate computes every ranked model's average 1-based position across the
// judges that mentioned its label. Models no judge ranked are excluded. The
// result is sorted ascending by average rank, ties broken by vote count
// descending, then by model identifier for determinism.
func Aggregate(rankings []JudgeRanking, labelToModel map[string]string) []AggregateEntry {
	type tally struct {
		positions int
		votes     int
	}
	tallies := make(map[string]*tally, len(labelToModel))

	for _, ranking := range rankings {
		for pos, label := range ranking.ParsedRanking {
			model, ok := labelToModel[label]
			if !ok {
				continue
			}
			t := tallies[model]
			if t == nil {
				t = &tally{}
				tallies[model] = t
			}
			t.positions += pos + 1
			t.votes++
		}
	}

	entries := make([]AggregateEntry, 0, len(tallies))
	for model, t := range tallies {
		entries = append(entries, AggregateEntry{
			Model:         model,
			AverageRank:   float64(t.positions) / float64(t.votes),
			RankingsCount: t.votes,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AverageRank != entries[j].AverageRank {
			return entries[i].AverageRank < entries[j].AverageRank
		}
		if entries[i].RankingsCount != entries[j].RankingsCount {
			return entries[i].RankingsCount > entries[j].RankingsCount
		}
		return entries[i].Model < entries[j].Model
	})
	return entries
}

// formatAggregate renders aggregate standings for logs.
func formatAggregate(entries []AggregateEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s=%.2f(%d)", e.Model, e.AverageRank, e.RankingsCount)
	}
	return strings.Join(parts, " ")
}
