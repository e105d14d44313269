// Package synthesis turns whatever the retrievers found into the single
// answer returned to the user.
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"clinic-agent/internal/action"
	"clinic-agent/internal/ai"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/dbsearch"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/store"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/textnorm"
	"clinic-agent/internal/vectorsearch"
	"clinic-agent/internal/websearch"
)

const (
	maxExcerpts    = 5
	historyWindow  = 10
	minAnswerLen   = 40
	maxTaskTitles  = 10
	answerTokens   = 1200
	answerTemp     = 0.3
	fallbackAnswer = "Je n'ai pas pu préparer de réponse complète pour le moment. Pouvez-vous reformuler votre question ou préciser la réunion, le document ou la tâche concernés ?"
)

// Path names the branch that produced the answer.
type Path string

const (
	PathTask     Path = "task"
	PathExcerpts Path = "excerpts"
	PathWeb      Path = "web"
	PathGeneral  Path = "general"
	PathFallback Path = "fallback"
)

type Input struct {
	Message  string
	History  []chat.Turn
	Intent   intent.Intent
	Database dbsearch.Context
	Vector   vectorsearch.Result
	Web      websearch.Result
	Tasks    *tasks.Context
}

type Output struct {
	Response string
	Actions  []action.Action
	Path     Path
}

type Synthesizer struct {
	llm ai.Completer
	log zerolog.Logger
}

func New(llm ai.Completer) *Synthesizer {
	return &Synthesizer{llm: llm, log: logging.Component("synthesis")}
}

// Synthesize never fails and never returns an empty response.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Output {
	if text, ok := TaskOutcome(in.Tasks); ok {
		return Output{Response: text, Path: PathTask}
	}

	history := chat.Format(chat.Last(in.History, historyWindow))

	if len(in.Vector.Chunks) > 0 {
		excerpts := make([]string, 0, maxExcerpts)
		for i, c := range in.Vector.Chunks {
			if i == maxExcerpts {
				break
			}
			excerpts = append(excerpts, c.Text)
		}
		if out, ok := s.complete(ctx, ai.ExcerptSystemPrompt, ai.BuildExcerptPrompt(in.Message, history, excerpts), true); ok {
			out.Path = PathExcerpts
			return out
		}
		s.log.Debug().Msg("excerpt answer rejected, trying next source")
	}

	if in.Web.HasContent {
		if out, ok := s.complete(ctx, ai.WebSystemPrompt, ai.BuildWebPrompt(in.Message, history, in.Web.Content), false); ok {
			out.Path = PathWeb
			return out
		}
	}

	counts := ai.ContextCounts{
		Meetings:  len(in.Database.Meetings),
		Documents: len(in.Database.Documents),
		Tasks:     len(openTodos(in)),
		Chunks:    len(in.Vector.Chunks),
	}
	if out, ok := s.complete(ctx, ai.GeneralSystemPrompt, ai.BuildGeneralPrompt(in.Message, history, counts, taskTitles(openTodos(in))), false); ok {
		out.Path = PathGeneral
		return out
	}

	return Output{Response: fallbackAnswer, Path: PathFallback}
}

// complete runs one completion and splits off its action block. strict
// applies the non-degenerate check used for excerpt answers.
func (s *Synthesizer) complete(ctx context.Context, system, user string, strict bool) (Output, bool) {
	if s.llm == nil {
		return Output{}, false
	}
	raw, err := s.llm.Complete(ctx, ai.Request{
		System:      system + "\n" + ai.ActionInstructions,
		User:        user,
		Temperature: answerTemp,
		MaxTokens:   answerTokens,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("completion failed")
		return Output{}, false
	}

	text, actions, err := action.Extract(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropped invalid actions")
	}
	text = StripSources(text)

	if strings.TrimSpace(text) == "" || (strict && !NonDegenerate(text)) {
		return Output{}, false
	}
	return Output{Response: text, Actions: actions}, true
}

func openTodos(in Input) []store.Todo {
	if in.Tasks != nil && len(in.Tasks.CurrentTasks) > 0 {
		return in.Tasks.CurrentTasks
	}
	return in.Database.Todos
}

func taskTitles(todos []store.Todo) []string {
	var out []string
	for i, t := range todos {
		if i == maxTaskTitles {
			break
		}
		line := t.Description
		if t.AssigneeName != "" {
			line += " (" + t.AssigneeName + ")"
		}
		out = append(out, line)
	}
	return out
}

var (
	negativeIndicators = []string{
		"je n'ai pas trouve", "je ne trouve pas", "aucune information",
		"pas d'information", "ne contiennent pas", "ne mentionnent pas",
		"ne precisent pas", "pas mentionne", "impossible de repondre",
		"je ne dispose pas",
	}
	positiveIndicators = []string{
		"selon", "d'apres", "a ete decide", "il a ete", "est prevu",
		"mentionne que", "indique que", "lors de la reunion",
	}
)

// NonDegenerate accepts an excerpt answer that is long enough and does not
// merely say the excerpts lack the answer.
func NonDegenerate(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minAnswerLen {
		return false
	}
	if !textnorm.ContainsAny(text, negativeIndicators...) {
		return true
	}
	return textnorm.ContainsAny(text, positiveIndicators...)
}

var (
	sourceLine   = regexp.MustCompile(`(?im)^[\s*_>-]*(?:document\s*id|sources?\s*:|\[source\s*\d+\]|référence\s*:).*$`)
	sourceInline = regexp.MustCompile(`(?i)\s*\[(?:source|extrait)\s*\d+\]`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// StripSources removes source attributions the model added despite the
// prompt.
func StripSources(text string) string {
	text = sourceLine.ReplaceAllString(text, "")
	text = sourceInline.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// TaskOutcome renders the deterministic answer for a task mutation, if the
// task context carries one.
func TaskOutcome(c *tasks.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	switch {
	case c.TaskCreated != nil:
		t := c.TaskCreated
		if t.AssigneeName != "" {
			return fmt.Sprintf("Tâche créée : « %s », assignée à %s.", t.Description, t.AssigneeName), true
		}
		return fmt.Sprintf("Tâche créée : « %s ».", t.Description), true

	case c.TaskUpdated != nil:
		t := c.TaskUpdated
		switch t.Status {
		case store.StatusCompleted:
			return fmt.Sprintf("La tâche « %s » est marquée comme terminée.", t.Description), true
		case store.StatusPending:
			return fmt.Sprintf("La tâche « %s » est remise en attente.", t.Description), true
		}
		return fmt.Sprintf("La tâche « %s » a été mise à jour.", t.Description), true

	case c.PendingTaskCreation != nil:
		return pendingQuestion(c.PendingTaskCreation), true

	case c.Clarification != "":
		return c.Clarification, true

	case c.Error != "" && c.Action != tasks.VerbList:
		return c.Error, true
	}
	return "", false
}

func pendingQuestion(p *tasks.Pending) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Je peux créer la tâche « %s ».", p.Description)
	if p.RequestedName != "" {
		fmt.Fprintf(&b, " Je n'ai trouvé personne correspondant à « %s ».", p.RequestedName)
	}
	if len(p.Suggestions) > 0 {
		names := make([]string, len(p.Suggestions))
		for i, s := range p.Suggestions {
			names[i] = s.Name
		}
		fmt.Fprintf(&b, " Personnes possibles : %s.", strings.Join(names, ", "))
	}
	b.WriteString(" ")
	b.WriteString(tasks.AssignQuestion)
	return b.String()
}
