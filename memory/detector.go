package memory

import "strings"

// ReferenceDetector decides whether a question refers back to earlier turns
// of the conversation and therefore needs full history context.
type ReferenceDetector interface {
	// RefersBack reports whether the question depends on prior context.
	RefersBack(question string) bool
}

// contextualPhrases are substrings that signal a back-reference.
var contextualPhrases = []string{
	"what did i",
	"you said",
	"follow up",
}

// contextualWords are single words that signal a back-reference when they
// appear as whole words. Checked word-wise to avoid matching inside longer
// words ("thistle", "preview").
var contextualWords = []string{
	"earlier",
	"previously",
	"that",
	"this",
}

// KeywordDetector is the default ReferenceDetector: a fixed phrase list.
// Cheap and language-specific; swap in a classifier-backed implementation
// for other languages.
type KeywordDetector struct{}

var _ ReferenceDetector = (*KeywordDetector)(nil)

// RefersBack reports whether the question contains a contextual phrase.
func (KeywordDetector) RefersBack(question string) bool {
	lowered := strings.ToLower(question)

	for _, phrase := range contextualPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	for _, field := range strings.Fields(lowered) {
		word := strings.Trim(field, ".,!?;:'\"")
		for _, candidate := range contextualWords {
			if word == candidate {
				return true
			}
		}
	}
	return false
}
