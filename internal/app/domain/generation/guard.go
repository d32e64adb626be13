package generation

import (
	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"ignore the above",
	"disregard previous instructions",
	"disregard the above",
	"forget your instructions",
	"you are now",
	"system prompt",
	"reveal your prompt",
	"act as",
	"jailbreak",
	"developer mode",
}

// PromptGuard rejects user prompts that try to override the system instructions.
type PromptGuard struct {
	matcher ahocorasick.AhoCorasick
}

func NewPromptGuard(phrases ...string) *PromptGuard {
	if len(phrases) == 0 {
		phrases = injectionPhrases
	}
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return &PromptGuard{matcher: builder.Build(phrases)}
}

// Check returns the first blocked phrase found in prompt, or "".
func (g *PromptGuard) Check(prompt string) string {
	matches := g.matcher.FindAll(prompt)
	if len(matches) == 0 {
		return ""
	}
	return prompt[matches[0].Start():matches[0].End()]
}
