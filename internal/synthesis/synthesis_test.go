package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/action"
	"clinic-agent/internal/ai"
	"clinic-agent/internal/roster"
	"clinic-agent/internal/store"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/vectorsearch"
	"clinic-agent/internal/websearch"
)

// scriptedLLM answers each call with the next reply, or fails once the
// script runs out.
type scriptedLLM struct {
	replies []string
	reqs    []ai.Request
}

func (l *scriptedLLM) Complete(_ context.Context, req ai.Request) (string, error) {
	l.reqs = append(l.reqs, req)
	if len(l.reqs) > len(l.replies) {
		return "", errors.New("upstream unavailable")
	}
	return l.replies[len(l.reqs)-1], nil
}

func withChunks(n int) vectorsearch.Result {
	var r vectorsearch.Result
	for i := 0; i < n; i++ {
		r.Chunks = append(r.Chunks, store.Chunk{ID: string(rune('a' + i)), Text: "extrait sur le budget", Similarity: 0.5})
	}
	r.HasRelevantContext = n > 0
	return r
}

const goodAnswer = "Lors de la réunion du 3 mars, il a été décidé d'augmenter le budget du matériel de 10 %."

func TestExcerptAnswerAccepted(t *testing.T) {
	llm := &scriptedLLM{replies: []string{goodAnswer}}
	out := New(llm).Synthesize(context.Background(), Input{Message: "Quel budget ?", Vector: withChunks(7)})

	assert.Equal(t, PathExcerpts, out.Path)
	assert.Equal(t, goodAnswer, out.Response)
	require.Len(t, llm.reqs, 1)
	assert.Equal(t, 5, strings.Count(llm.reqs[0].User, "--- extrait"))
}

func TestDegenerateExcerptAnswerFallsThrough(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Les extraits ne contiennent pas cette information.",
		"Le fournisseur habituel propose une livraison sous 48 heures en Suisse romande.",
	}}
	in := Input{Message: "Délai de livraison ?", Vector: withChunks(2), Web: websearch.Result{HasContent: true, Content: "Livraison 48h"}}

	out := New(llm).Synthesize(context.Background(), in)

	assert.Equal(t, PathWeb, out.Path)
	assert.Len(t, llm.reqs, 2)
}

func TestGeneralCompletionWithCounts(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"Bonjour, je peux vous aider avec vos réunions et vos tâches."}}
	in := Input{
		Message: "Bonjour",
		Tasks:   &tasks.Context{CurrentTasks: []store.Todo{{Description: "Commander des lentilles", AssigneeName: "Leïla Haddad"}}},
	}

	out := New(llm).Synthesize(context.Background(), in)

	assert.Equal(t, PathGeneral, out.Path)
	assert.Contains(t, llm.reqs[0].User, "1 tâches ouvertes")
	assert.Contains(t, llm.reqs[0].User, "Commander des lentilles (Leïla Haddad)")
}

func TestNeverEmpty(t *testing.T) {
	out := New(&scriptedLLM{}).Synthesize(context.Background(), Input{Message: "Bonjour"})
	assert.Equal(t, PathFallback, out.Path)
	assert.NotEmpty(t, out.Response)

	out = New(nil).Synthesize(context.Background(), Input{Message: "Bonjour", Vector: withChunks(1)})
	assert.NotEmpty(t, out.Response)
}

func TestActionsAreExtracted(t *testing.T) {
	reply := "Je vous propose de relancer le fournisseur des lentilles cette semaine.\n" +
		"```json\n{\"actions\":[{\"type\":\"create_task\",\"description\":\"Relancer le fournisseur\",\"assigned_to\":\"Leïla\"}]}\n```"
	llm := &scriptedLLM{replies: []string{reply}}

	out := New(llm).Synthesize(context.Background(), Input{Message: "Que faire ?"})

	assert.NotContains(t, out.Response, "actions")
	require.Len(t, out.Actions, 1)
	assert.Equal(t, action.TypeCreateTask, out.Actions[0].Type())
}

func TestTaskOutcomeShortCircuits(t *testing.T) {
	llm := &scriptedLLM{}
	in := Input{
		Message: "Crée une tâche",
		Vector:  withChunks(3),
		Tasks: &tasks.Context{
			Action:      tasks.VerbCreate,
			TaskCreated: &store.Todo{Description: "rappeler le fournisseur", AssigneeName: "David Tabibian"},
		},
	}

	out := New(llm).Synthesize(context.Background(), in)

	assert.Equal(t, PathTask, out.Path)
	assert.Equal(t, "Tâche créée : « rappeler le fournisseur », assignée à David Tabibian.", out.Response)
	assert.Empty(t, llm.reqs)
}

func TestPendingAsksWhoToAssign(t *testing.T) {
	text, ok := TaskOutcome(&tasks.Context{PendingTaskCreation: &tasks.Pending{
		Description:   "rappeler le labo",
		RequestedName: "Zorro",
		Suggestions:   []roster.Person{{Name: "David Tabibian"}, {Name: "Leïla Haddad"}},
	}})

	require.True(t, ok)
	assert.Contains(t, text, "« Zorro »")
	assert.Contains(t, text, "David Tabibian, Leïla Haddad")
	assert.True(t, strings.HasSuffix(text, tasks.AssignQuestion))
}

func TestListingIsNotDeterministic(t *testing.T) {
	_, ok := TaskOutcome(&tasks.Context{Action: tasks.VerbList, CurrentTasks: []store.Todo{{ID: "1"}}})
	assert.False(t, ok)
}

func TestNonDegenerate(t *testing.T) {
	assert.False(t, NonDegenerate("Oui."))
	assert.False(t, NonDegenerate("Je n'ai pas trouvé d'information à ce sujet dans les extraits fournis."))
	assert.True(t, NonDegenerate("Je n'ai pas trouvé de date, mais selon le compte rendu le budget est validé."))
	assert.True(t, NonDegenerate(goodAnswer))
}

func TestStripSources(t *testing.T) {
	in := "Le budget est validé [Source 1].\nDocument ID: 1234-abcd\nSource: compte rendu\n\n\nLa suite est prévue."
	assert.Equal(t, "Le budget est validé.\n\nLa suite est prévue.", StripSources(in))
}
