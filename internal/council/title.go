package council

import (
	"context"
	"strings"
)

// titleFallbackLen caps the truncated-query fallback title.
const titleFallbackLen = 50

// GenerateTitle asks the chairman model for a short conversation title.
// Title generation is best effort: any failure falls back to a truncation of
// the query itself, so callers never see an error.
func (p *Pipeline) GenerateTitle(ctx context.Context, query string) string {
	resp, err := p.caller.QueryModel(ctx, p.chairman, titleMessages(query))
	if err != nil || resp == nil || resp.Content == "" {
		p.logger.WithModel(p.chairman).Warn("title generation failed, using query prefix")
		return fallbackTitle(query)
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"`))
	if title == "" {
		return fallbackTitle(query)
	}
	return title
}

func fallbackTitle(query string) string {
	query = strings.TrimSpace(query)
	if len(query) <= titleFallbackLen {
		return query
	}
	return strings.TrimSpace(query[:titleFallbackLen]) + "..."
}
