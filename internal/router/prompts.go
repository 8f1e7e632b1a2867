package router

import (
	"encoding/json"
	"fmt"
	"strings"
)

const decomposeSystemPrompt = `You split a user question into sub-questions, each answerable by exactly one tool.
Reply with a JSON array only, no prose. Each element is {"sub_question": string, "tool_name": string}.
Use only tool names from the catalogue. Ask one sub-question per company the question is about.`

const synthesisSystemPrompt = "You combine answers to sub-questions about company earnings calls into one answer to the original question. " +
	"Use only the information in the sub-answers. Compare companies explicitly when the question asks for it."

type toolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func buildDecomposePrompt(question string, tools []Tool) string {
	specs := make([]toolSpec, len(tools))
	for i, t := range tools {
		specs[i] = toolSpec{Name: t.Name, Description: t.Description}
	}
	catalogue, _ := json.MarshalIndent(specs, "", "  ")

	var sb strings.Builder
	sb.WriteString("Tools:\n")
	sb.Write(catalogue)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nSub-questions:")
	return sb.String()
}

func buildSynthesisPrompt(question string, answers []SubAnswer) string {
	var sb strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&sb, "Sub-question %d (%s): %s\nAnswer: %s\n\n", i+1, a.ToolName, a.Question, a.Answer.Text)
	}
	sb.WriteString("Original question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
