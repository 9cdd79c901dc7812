package generator

import "unicode/utf8"

type level string

const (
	levelShort    level = "short"
	levelMedium   level = "medium"
	levelDetailed level = "detailed"
)

var prompts = map[level]string{
	levelShort: `Write a compelling 1-2 sentence summary that makes someone want to read this article. Include the most surprising or valuable insight. Use specific numbers/facts when possible.`,

	levelMedium: `Create a 3-5 sentence summary that captures:
- The core insight or surprising finding
- Key evidence (numbers, studies, examples)
- Who should care and why
- What makes this timely/important now

Write like you're explaining to a smart friend. Be conversational but informative.`,

	levelDetailed: `Create an executive-style summary with these sections:

Key Takeaway: the main insight in one sentence.
The Evidence: data, examples, or research that supports it.
Why It Matters: who should care and what the implications are.
What's Next: open questions or what should happen next.

Use specific numbers, names, and facts. Write for busy professionals who want the substance quickly.`,
}

const (
	truncatedMarker = "...[truncated]"
	emptyOutput     = "Summary generation failed"
)

// Truncate cuts content to at most maxChars runes, marking the cut.
func Truncate(content string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxChars]) + truncatedMarker
}

func buildPrompt(l level, content string) string {
	return prompts[l] + "\n\nArticle content:\n\n" + content
}
