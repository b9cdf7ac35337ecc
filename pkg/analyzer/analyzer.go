package analyzer

import "context"

// FileAnalyzer is implemented by analyzers that process a collection
// of source files into a single result, such as the strip analyzer's
// elimination plan.
type FileAnalyzer[T any] interface {
	// Analyze processes the given files and returns the combined
	// result. The context cancels in-flight work.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases parser resources held by the analyzer.
	Close()
}
