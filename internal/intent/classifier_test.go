package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/ai"
	"clinic-agent/internal/chat"
)

type stubLLM struct {
	out   string
	err   error
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _ ai.Request) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestTaskMessageShortCircuits(t *testing.T) {
	llm := &stubLLM{out: `{"queryType": "general"}`}
	c := NewClassifier(llm, nil)

	in := c.Classify(context.Background(), "Crée une tâche pour rappeler le fournisseur, assigne à David", nil)

	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, SourceKeyword, in.Source)
	assert.Equal(t, QueryTask, in.QueryType)
	assert.Equal(t, PriorityDatabase, in.Priority)
	assert.True(t, in.RequiresTasks)
	assert.True(t, in.RequiresDatabase)
	require.NotNil(t, in.Action)
	assert.Equal(t, ActionCreate, in.Action.Type)
}

func TestLLMIntentParsed(t *testing.T) {
	llm := &stubLLM{out: "Voici:\n```json\n" + `{
		"requiresDatabase": true,
		"requiresEmbeddings": true,
		"requiresInternet": false,
		"queryType": "meeting",
		"priority": "embeddings",
		"searchTerms": ["budget", "OCT"],
		"action": null
	}` + "\n```"}
	c := NewClassifier(llm, nil)

	in := c.Classify(context.Background(), "Qu'a-t-on décidé sur le budget de l'OCT ?", nil)

	assert.Equal(t, SourceLLM, in.Source)
	assert.Equal(t, QueryMeeting, in.QueryType)
	assert.Equal(t, PriorityEmbeddings, in.Priority)
	assert.Equal(t, []string{"budget", "OCT"}, in.SearchTerms)
	assert.Contains(t, in.Synonyms, "dépense")
	assert.Nil(t, in.Action)
}

func TestLLMIntentNormalizesUnknownEnums(t *testing.T) {
	llm := &stubLLM{out: `{"queryType": "weather", "priority": "astrology", "requiresInternet": true}`}
	c := NewClassifier(llm, nil)

	in := c.Classify(context.Background(), "Quel temps fait-il à Lausanne ?", nil)

	assert.Equal(t, QueryGeneral, in.QueryType)
	assert.Equal(t, PriorityInternet, in.Priority)
	assert.NotEmpty(t, in.SearchTerms)
}

func TestFallbackOnError(t *testing.T) {
	llm := &stubLLM{err: errors.New("503")}
	c := NewClassifier(llm, nil)

	in := c.Classify(context.Background(), "Résume la dernière réunion", nil)

	assert.Equal(t, SourceFallback, in.Source)
	assert.Equal(t, QueryMeeting, in.QueryType)
	assert.Equal(t, PriorityEmbeddings, in.Priority)
	assert.True(t, in.RequiresEmbeddings)
	assert.Equal(t, "derniere", in.TimeContext)
}

func TestFallbackOnGarbage(t *testing.T) {
	c := NewClassifier(&stubLLM{out: "je ne sais pas"}, nil)
	in := c.Classify(context.Background(), "Quel est le prix des lentilles chez le fournisseur ?", nil)

	assert.Equal(t, SourceFallback, in.Source)
	assert.True(t, in.RequiresInternet)
	assert.Equal(t, PriorityInternet, in.Priority)
}

func TestFallbackIsDeterministic(t *testing.T) {
	c := NewClassifier(nil, nil)
	history := []chat.Turn{{IsUser: true, Content: "Bonjour"}, {IsUser: false, Content: "Bonjour !"}}

	msgs := []string{
		"Résume la réunion et le rapport de lundi",
		"Quels documents parlent du protocole Dupixent ?",
		"Peux-tu m'aider ?",
		"Bonjour",
	}
	for _, m := range msgs {
		first := c.Classify(context.Background(), m, history)
		for i := 0; i < 5; i++ {
			again := c.Classify(context.Background(), m, history)
			assert.Equal(t, first, again, m)
		}
	}
}

func TestFallbackQueryTypes(t *testing.T) {
	c := NewClassifier(nil, nil)

	assert.Equal(t, QueryMixed, c.Fallback("Résume la réunion et le rapport de lundi").QueryType)
	assert.Equal(t, QueryDocument, c.Fallback("Ouvre le protocole de stérilisation").QueryType)
	assert.Equal(t, QueryGeneral, c.Fallback("Bonjour").QueryType)
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"protocole", "dupixent", "patients"},
		ExtractTerms("Quel est le protocole Dupixent pour les patients ?", 5))
	assert.Len(t, ExtractTerms("alpha bravo charlie delta echo foxtrot", 3), 3)
}

func TestIsTaskRelated(t *testing.T) {
	assert.True(t, IsTaskRelated("Quelles sont mes tâches ?"))
	assert.True(t, IsTaskRelated("Qu'est-ce qui reste à faire ?"))
	assert.False(t, IsTaskRelated("Résume la dernière réunion"))
}
