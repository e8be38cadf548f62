package regex

import "context"

// SummaryScope is the owner id of scripts applied to response summaries.
const SummaryScope = "summary"

// Summarize runs the summary-scoped scripts (plus the global ones) over text
// and returns the processed string. Broken scripts are skipped.
func (p *Pipeline) Summarize(ctx context.Context, text string) (string, error) {
	res, err := p.Process(ctx, text, SummaryScope)
	if err != nil {
		return text, err
	}
	return res.Final, nil
}
