package rag

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rashmirrout/loglens/core"
)

var (
	answerRe     = regexp.MustCompile(`(?s)"answer"\s*:\s*"([^"]+)"`)
	referencesRe = regexp.MustCompile(`(?s)"references"\s*:\s*\[(.*?)\]`)
	quotedRe     = regexp.MustCompile(`"([^"]+)"`)
)

// ParseResponse turns a raw model response into a structured Answer. It
// strips markdown code fences, parses JSON requiring an "answer" key, and
// falls back to regex extraction when the model produced something that is
// not quite JSON. It never fails: the worst case uses the whole response as
// the answer text.
func ParseResponse(text string, chunks []core.Chunk) core.Answer {
	clean := stripFences(text)

	var parsed struct {
		Answer     *string  `json:"answer"`
		References []string `json:"references"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err == nil && parsed.Answer != nil {
		return core.Answer{
			Answer:        *parsed.Answer,
			References:    parsed.References,
			ContextChunks: chunks,
		}
	}

	return extractHeuristic(text, chunks)
}

// stripFences removes a surrounding markdown code block, if present.
func stripFences(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```json") {
		clean = clean[len("```json"):]
	} else if strings.HasPrefix(clean, "```") {
		clean = clean[len("```"):]
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

// extractHeuristic pulls answer and references fields out of malformed
// JSON-ish text. When no answer field is found the full response becomes the
// answer.
func extractHeuristic(text string, chunks []core.Chunk) core.Answer {
	answer := text
	if m := answerRe.FindStringSubmatch(text); m != nil {
		answer = m[1]
	}

	var references []string
	if m := referencesRe.FindStringSubmatch(text); m != nil {
		for _, q := range quotedRe.FindAllStringSubmatch(m[1], -1) {
			references = append(references, q[1])
		}
	}

	return core.Answer{
		Answer:        answer,
		References:    references,
		ContextChunks: chunks,
	}
}
