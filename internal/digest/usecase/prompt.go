package usecase

import (
	"fmt"
	"strings"

	digestdomain "maildigest-backend/internal/digest/domain"
	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
)

// buildInstructionBlock assembles the system instruction from persona
// context. Every persona field is optional; a nil persona yields the bare
// assistant instruction.
func buildInstructionBlock(p *personadomain.Persona) string {
	var sb strings.Builder
	sb.WriteString("You are an email assistant that turns raw email into precise, structured digests.")

	if p == nil {
		return sb.String()
	}
	if p.Role != "" {
		fmt.Fprintf(&sb, " The user works as: %s.", p.Role)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&sb, " They care about: %s.", strings.Join(p.Interests, ", "))
	}
	if len(p.FocusAreas) > 0 {
		fmt.Fprintf(&sb, " Prioritize anything related to: %s.", strings.Join(p.FocusAreas, ", "))
	}
	switch p.SummaryStyle {
	case personadomain.StyleBullets:
		sb.WriteString(" Write summaries as short bullet points.")
	case personadomain.StyleDetailed:
		sb.WriteString(" Write thorough summaries that preserve context.")
	case personadomain.StyleConcise:
		sb.WriteString(" Write tight, one-or-two sentence summaries.")
	}
	switch p.SummaryLength {
	case personadomain.LengthShort:
		sb.WriteString(" Keep output as short as possible.")
	case personadomain.LengthLong:
		sb.WriteString(" Longer output is acceptable when the content warrants it.")
	}

	return sb.String()
}

func emailPrompt(email *emaildomain.EmailRecord, body string) string {
	return fmt.Sprintf(`Analyze the following email and respond with a single JSON object:
{"content": "<summary>", "action_items": ["<task>"], "priority": "high|medium|low", "category": "<category>", "sentiment": "positive|neutral|negative"}

Return ONLY the JSON object, no other text.

From: %s
Subject: %s

%s`, email.From, email.Subject, body)
}

func dailyPrompt(summaries []*digestdomain.EmailSummary, input string) string {
	return fmt.Sprintf(`Below are %d email summaries from the last day. Synthesize them into one daily digest and respond with a single JSON object:
{"content": "<digest narrative>", "highlights": ["<notable item>"], "action_items": [{"text": "<task>", "priority": "high|medium|low", "due_date": "<ISO 8601 or empty>", "source_email_id": "<id>"}]}

Return ONLY the JSON object, no other text.

%s`, len(summaries), input)
}

func answerPrompt(question string, contextItems []string) string {
	var sb strings.Builder
	sb.WriteString("Answer the user's question using only the email context below. If the context does not contain the answer, say so.\n\nCONTEXT:\n")
	for i, item := range contextItems {
		fmt.Fprintf(&sb, "--- item %d ---\n%s\n", i+1, item)
	}
	sb.WriteString("\nQUESTION: ")
	sb.WriteString(question)
	return sb.String()
}
