// Package prompt renders the interviewer instruction script handed to the
// conversational agent. Rendering is deterministic: the same requirement set
// and applicant always produce the same script.
package prompt

import (
	"fmt"
	"strings"

	_ "embed"

	"github.com/skillgate/ai-interviewer/internal/intake"
)

//go:embed prompt.md
var promptTemplate string

// GenericPrompt covers sessions with no loaded requirement set. The session
// is still valid, but the script enforces no verdict token contract, so
// extraction quality degrades.
const GenericPrompt = "You are a professional AI interviewer. Ask relevant questions about the candidate's " +
	"experience and skills. Keep responses concise and professional. When you decide the interview is over, " +
	"state clearly whether the candidate has PASSED or FAILED."

// Greeting is the agent's opening line, spoken before the first question.
const Greeting = "Hello! Thank you for applying. Let's begin the interview. Can you please introduce yourself?"

// FailureMessage is spoken by the agent when its LLM backend misbehaves.
const FailureMessage = "Sorry, I'm experiencing technical difficulties."

// Generate renders the instruction script. Every requirement appears exactly
// once, numbered in original order, and the question budget equals the
// requirement count. A nil or empty requirement set falls back to
// GenericPrompt.
func Generate(reqs *intake.Requirements, applicant intake.Applicant) string {
	if reqs.Len() == 0 {
		return GenericPrompt
	}

	var list strings.Builder
	for i, item := range reqs.Items {
		fmt.Fprintf(&list, "%d. %s\n", i+1, item)
	}

	script := strings.ReplaceAll(promptTemplate, "{{ROLE}}", reqs.Role)
	script = strings.ReplaceAll(script, "{{COUNT}}", fmt.Sprintf("%d", reqs.Len()))
	script = strings.ReplaceAll(script, "{{REQUIREMENTS}}", strings.TrimRight(list.String(), "\n"))

	if name := strings.TrimSpace(applicant.FullName); name != "" {
		script += fmt.Sprintf("\nThe candidate's name is %s. Address them by name.\n", name)
	}

	return script
}
