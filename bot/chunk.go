package bot

import "strings"

// MaxMessageLength is Discord's per-message content limit.
const MaxMessageLength = 2000

// SplitMessage splits text into pieces no longer than limit runes,
// preferring newline boundaries, then spaces, then a hard cut. Empty
// input yields no pieces.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var chunks []string
	runes := []rune(text)

	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}

		cut := limit
		window := runes[:limit]

		if idx := lastIndexRune(window, '\n'); idx > 0 {
			cut = idx
		} else if idx := lastIndexRune(window, ' '); idx > 0 {
			cut = idx
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = trimLeadingSpace(runes[cut:])
	}

	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func trimLeadingSpace(runes []rune) []rune {
	for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\n' || runes[0] == '\t') {
		runes = runes[1:]
	}
	return runes
}
