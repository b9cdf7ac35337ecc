package output

import (
	"fmt"
	"unicode/utf8"
)

// TokenBudgetInfo describes how much of an agent's context window a
// piece of output is expected to consume.
type TokenBudgetInfo struct {
	Tokens       int     // Estimated token count
	Budget       int     // Token budget (context window size)
	BudgetLabel  string  // Human-readable budget label (e.g., "32k", "128k")
	UsagePercent float64 // Percentage of budget used
	Remaining    int     // Estimated tokens remaining
}

// Common context window sizes.
const (
	Budget8K   = 8000
	Budget16K  = 16000
	Budget32K  = 32000
	Budget64K  = 64000
	Budget128K = 128000
	Budget200K = 200000
)

// DefaultBudget is the context window size assumed when none is given.
const DefaultBudget = Budget128K

// CharsPerToken is the approximate character-to-token ratio. Code runs
// around four characters per token across common tokenizers, slightly
// more than prose because of syntax and identifiers.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for the given text.
// It is a character-count heuristic: good enough to decide whether a
// report will fit in a context window, not an exact count.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	runeCount := utf8.RuneCountInString(text)
	tokens := float64(runeCount) / CharsPerToken

	return int(tokens + 0.5)
}

// FormatTokenCount formats a token count for display.
// Counts >= 1000 are formatted as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// GetTokenBudgetInfo calculates token budget information for the given text.
func GetTokenBudgetInfo(text string, budget int) TokenBudgetInfo {
	if budget <= 0 {
		budget = DefaultBudget
	}

	tokens := EstimateTokens(text)
	remaining := budget - tokens
	if remaining < 0 {
		remaining = 0
	}

	return TokenBudgetInfo{
		Tokens:       tokens,
		Budget:       budget,
		BudgetLabel:  formatBudgetLabel(budget),
		UsagePercent: float64(tokens) / float64(budget) * 100,
		Remaining:    remaining,
	}
}

// formatBudgetLabel creates a human-readable label for a budget size.
func formatBudgetLabel(budget int) string {
	if budget >= 1000 {
		return fmt.Sprintf("%dk", budget/1000)
	}
	return fmt.Sprintf("%d", budget)
}
