package ai

import (
	"fmt"
	"strings"
)

// BuildIntentPrompt formats the message and trailing history for the classifier.
func BuildIntentPrompt(message, history string) string {
	var b strings.Builder

	if history != "" {
		b.WriteString("recent_history:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("message: ")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}

// BuildExcerptPrompt asks for an answer grounded only in the given excerpts.
func BuildExcerptPrompt(message, history string, excerpts []string) string {
	var b strings.Builder

	b.WriteString("extraits:\n")
	for i, e := range excerpts {
		fmt.Fprintf(&b, "--- extrait %d ---\n%s\n", i+1, strings.TrimSpace(e))
	}
	b.WriteString("\n")

	if history != "" {
		b.WriteString("historique:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("question: ")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}

// BuildWebPrompt asks for an answer from external search content.
func BuildWebPrompt(message, history, content string) string {
	var b strings.Builder

	b.WriteString("informations_recherche:\n")
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n")

	if history != "" {
		b.WriteString("historique:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("question: ")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}

// ContextCounts summarizes what the retrievers found without exposing rows.
type ContextCounts struct {
	Meetings  int
	Documents int
	Tasks     int
	Chunks    int
}

// BuildGeneralPrompt is the last-resort prompt: counts only, never raw rows.
func BuildGeneralPrompt(message, history string, counts ContextCounts, taskTitles []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "contexte_disponible: %d réunions, %d documents, %d tâches ouvertes, %d extraits\n",
		counts.Meetings, counts.Documents, counts.Tasks, counts.Chunks)

	if len(taskTitles) > 0 {
		b.WriteString("taches_ouvertes:\n")
		for _, t := range taskTitles {
			b.WriteString("- ")
			b.WriteString(t)
			b.WriteString("\n")
		}
	}

	if history != "" {
		b.WriteString("historique:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	b.WriteString("message: ")
	b.WriteString(message)
	b.WriteString("\n")

	return b.String()
}

// BuildTranscriptPrompt lists the known participants and the transcript.
func BuildTranscriptPrompt(title, transcript string, participants []string) string {
	var b strings.Builder

	b.WriteString("reunion: ")
	b.WriteString(title)
	b.WriteString("\n")

	if len(participants) > 0 {
		b.WriteString("participants: ")
		b.WriteString(strings.Join(participants, ", "))
		b.WriteString("\n")
	}

	b.WriteString("transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\n")

	return b.String()
}
