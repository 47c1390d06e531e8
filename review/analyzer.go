package review

import (
	"context"
)

// Analyzer is the external analysis dependency. Implementations may call out
// over the network; the Service treats any error as "unavailable" and falls
// back to the rule-based generator without surfacing the failure.
type Analyzer interface {
	Analyze(ctx context.Context, doc Document) ([]Suggestion, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, doc Document) ([]Suggestion, error)

// Analyze implements the Analyzer interface.
func (f AnalyzerFunc) Analyze(ctx context.Context, doc Document) ([]Suggestion, error) {
	return f(ctx, doc)
}
