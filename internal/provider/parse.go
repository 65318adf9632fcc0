package provider

import (
	"regexp"
	"strings"

	"pdfqa/internal/models"
)

// Citation tags look like [report.pdf p.4 §2.1] and sit at the end of the
// sentence. Quotes may use straight or curly double quotes depending on what
// the model emits.
var (
	citationPattern = regexp.MustCompile(`\[[^\[\]]+\]\s*$`)
	quotePattern    = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
)

// ParseAnswer splits a provider response into sentence, quote, and citation
// tag. A trailing bracketed suffix becomes the citation; without one, the
// whole text is the sentence and the citation is empty. The tag's contents
// are passed through verbatim, never validated locally.
func ParseAnswer(text string) models.Answer {
	answer := models.Answer{Raw: text}

	rest := strings.TrimSpace(text)
	if tag := citationPattern.FindString(rest); tag != "" {
		answer.Citation = strings.TrimSpace(tag)
		rest = strings.TrimSpace(strings.TrimSuffix(rest, tag))
	}
	answer.Sentence = rest

	if m := quotePattern.FindStringSubmatch(rest); m != nil {
		if m[1] != "" {
			answer.Quote = m[1]
		} else {
			answer.Quote = m[2]
		}
	}
	return answer
}
