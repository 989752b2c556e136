package rag

import (
	"fmt"
	"strings"

	"github.com/rashmirrout/loglens/core"
)

const promptTemplate = `You are an expert log analyst. Your task is to analyze log file excerpts and answer questions about them.

CONTEXT (Log Excerpts):
%s

USER QUERY:
%s

INSTRUCTIONS:
1. Provide a concise, evidence-backed answer based ONLY on the provided log excerpts
2. Reference specific files and line ranges when citing evidence
3. If the logs don't contain enough information to answer the question, say so
4. Format your response as JSON with the following structure:
{
  "answer": "Your detailed answer here",
  "references": ["file1.log: lines 10-20", "file2.log: lines 45-60"]
}

RESPONSE (JSON):`

// BuildPrompt formats retrieved chunks and the user query into the grounding
// prompt. Each chunk is labeled with its source file and line range so the
// model can cite evidence.
func BuildPrompt(chunks []core.Chunk, query string) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Chunk %d] %s (lines %d-%d):\n%s\n",
			i+1, chunk.SourceFile, chunk.StartLine, chunk.EndLine, chunk.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(parts, "\n"), query)
}
