package qagen

import (
	"fmt"
	"strings"
)

// DefaultMaxContextLength caps a single context block, in runes.
const DefaultMaxContextLength = 4000

// BuildContexts turns raw conversation records into context blocks: one
// block per record, numbered "sender: content" lines with embedded newlines
// stripped, truncated to maxLen runes. Records without messages are skipped.
func BuildContexts(records []Record, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxContextLength
	}

	contexts := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec.Messages) == 0 {
			continue
		}

		lines := make([]string, 0, len(rec.Messages))
		for i, m := range rec.Messages {
			sender := strings.ReplaceAll(m.Sender, "\n", "")
			content := strings.ReplaceAll(m.Content, "\n", "")
			lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, sender, content))
		}

		context := strings.Join(lines, "\n")
		if runes := []rune(context); len(runes) > maxLen {
			context = string(runes[:maxLen])
		}
		contexts = append(contexts, context)
	}
	return contexts
}
