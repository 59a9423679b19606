package telegram

import "strings"

const messageLimit = 4096

// SplitMessage делит текст на части не длиннее limit рун. Резать стараемся по
// переводам строк, слишком длинные строки режутся жёстко.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || limit > messageLimit {
		limit = messageLimit
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var (
		parts   []string
		current []rune
	)
	flush := func() {
		chunk := strings.Trim(string(current), "\n")
		if chunk != "" {
			parts = append(parts, chunk)
		}
		current = current[:0]
	}
	for _, line := range strings.SplitAfter(trimmed, "\n") {
		runes := []rune(line)
		if len(current)+len(runes) > limit {
			flush()
		}
		for len(runes) > limit {
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		current = append(current, runes...)
	}
	flush()
	return parts
}
