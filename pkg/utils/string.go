package utils

// Truncate shortens s to maxLen bytes, marking the cut with an ellipsis.
// Prompts can be arbitrarily long; log lines should not be.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
