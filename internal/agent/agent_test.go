package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/chat"
	"clinic-agent/internal/dbsearch"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/store"
	"clinic-agent/internal/synthesis"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/vectorsearch"
	"clinic-agent/internal/websearch"
)

type fakeClassifier struct {
	in         intent.Intent
	classified int
	forced     int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, _ []chat.Turn) intent.Intent {
	f.classified++
	return f.in
}

func (f *fakeClassifier) TaskIntent(_ string) intent.Intent {
	f.forced++
	return intent.Intent{RequiresDatabase: true, RequiresTasks: true, QueryType: intent.QueryTask, Source: intent.SourceKeyword}
}

type fakeDB struct {
	ctx   dbsearch.Context
	calls int
}

func (f *fakeDB) Fetch(_ context.Context, _ intent.Intent) dbsearch.Context {
	f.calls++
	return f.ctx
}

type fakeVector struct {
	res    vectorsearch.Result
	calls  int
	gotIDs []string
}

func (f *fakeVector) Search(_ context.Context, _ string, _ intent.Intent, _ []chat.Turn, ids []string) vectorsearch.Result {
	f.calls++
	f.gotIDs = ids
	return f.res
}

type fakeTasks struct {
	out   tasks.Context
	calls int
}

func (f *fakeTasks) Handle(_ context.Context, _ string, _ []chat.Turn) tasks.Context {
	f.calls++
	return f.out
}

type fakeWeb struct {
	enabled  bool
	res      websearch.Result
	calls    int
	gotLocal bool
}

func (f *fakeWeb) Enabled() bool { return f.enabled }

func (f *fakeWeb) Search(_ context.Context, _ string, _ intent.Intent, hasLocal bool) websearch.Result {
	f.calls++
	f.gotLocal = hasLocal
	return f.res
}

type fakeSynth struct {
	got synthesis.Input
}

func (f *fakeSynth) Synthesize(_ context.Context, in synthesis.Input) synthesis.Output {
	f.got = in
	return synthesis.Output{Response: "réponse", Path: synthesis.PathGeneral}
}

type harness struct {
	cls   *fakeClassifier
	db    *fakeDB
	vec   *fakeVector
	tasks *fakeTasks
	web   *fakeWeb
	synth *fakeSynth
}

func newHarness(in intent.Intent) (*Coordinator, *harness) {
	h := &harness{
		cls:   &fakeClassifier{in: in},
		db:    &fakeDB{},
		vec:   &fakeVector{},
		tasks: &fakeTasks{},
		web:   &fakeWeb{enabled: true, res: websearch.Result{HasContent: true, Content: "web", Sources: []string{"https://hug.ch"}}},
		synth: &fakeSynth{},
	}
	c := New(Deps{Classifier: h.cls, Database: h.db, Vector: h.vec, Tasks: h.tasks, Web: h.web, Synth: h.synth})
	return c, h
}

func chunks(n int) []store.Chunk {
	out := make([]store.Chunk, n)
	for i := range out {
		out[i] = store.Chunk{ID: string(rune('a' + i)), MeetingID: "m-1", DocumentType: "meeting_transcript", Text: "budget validé", Similarity: 0.6}
	}
	return out
}

func TestRunUsesLocalContextWithoutWeb(t *testing.T) {
	c, h := newHarness(intent.Intent{RequiresDatabase: true, RequiresEmbeddings: true, QueryType: intent.QueryMeeting})
	h.db.ctx = dbsearch.Context{Meetings: []store.Meeting{{ID: "m-1"}}, RelevantIDs: []string{"m-1"}}
	h.vec.res = vectorsearch.Result{Chunks: chunks(2), HasRelevantContext: true, Iterations: 1}

	resp := c.Run(context.Background(), Request{Message: "Qu'a-t-on décidé sur le budget ?"})

	assert.Equal(t, "réponse", resp.Response)
	assert.Equal(t, []string{"m-1"}, h.vec.gotIDs)
	assert.Zero(t, h.web.calls)
	assert.Zero(t, h.tasks.calls)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, SourceEmbedding, resp.Sources[0].Type)
	assert.Equal(t, 1, resp.DatabaseContext.Meetings)
	assert.Equal(t, 2, resp.DebugInfo.ChunksFound)
	assert.Equal(t, "general", resp.DebugInfo.Path)
	assert.Contains(t, resp.DebugInfo.StageMillis, "classify")
	assert.Contains(t, resp.DebugInfo.StageMillis, "vector")
	assert.NotContains(t, resp.DebugInfo.StageMillis, "web")
	assert.Nil(t, resp.TaskContext)
}

func TestRunFallsBackToWebWhenNothingLocal(t *testing.T) {
	c, h := newHarness(intent.Intent{RequiresEmbeddings: true, QueryType: intent.QueryGeneral})

	resp := c.Run(context.Background(), Request{Message: "Quel fournisseur pour des lentilles ?"})

	assert.Equal(t, 1, h.web.calls)
	assert.False(t, h.web.gotLocal)
	assert.True(t, h.synth.got.Web.HasContent)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, SourceInternet, resp.Sources[0].Type)
	assert.Equal(t, "https://hug.ch", resp.Sources[0].URL)
	assert.True(t, resp.DebugInfo.InternetUsed)
}

func TestRunInternetIntentEnrichesLocalContext(t *testing.T) {
	c, h := newHarness(intent.Intent{RequiresEmbeddings: true, RequiresInternet: true, QueryType: intent.QueryMixed})
	h.vec.res = vectorsearch.Result{Chunks: chunks(1), HasRelevantContext: true}

	c.Run(context.Background(), Request{Message: "Comparer notre tarif avec le marché"})

	assert.Equal(t, 1, h.web.calls)
	assert.True(t, h.web.gotLocal)
}

func TestRunTaskQueryNeverSearchesWeb(t *testing.T) {
	c, h := newHarness(intent.Intent{RequiresDatabase: true, RequiresTasks: true, QueryType: intent.QueryTask})
	h.tasks.out = tasks.Context{Action: tasks.VerbList, HasTaskContext: true}

	resp := c.Run(context.Background(), Request{Message: "Montre mes tâches"})

	assert.Equal(t, 1, h.tasks.calls)
	assert.Zero(t, h.web.calls)
	require.NotNil(t, resp.TaskContext)
	assert.Same(t, resp.TaskContext, h.synth.got.Tasks)
}

func TestRunDisabledWebIsSkipped(t *testing.T) {
	c, h := newHarness(intent.Intent{RequiresInternet: true, QueryType: intent.QueryGeneral})
	h.web.enabled = false

	resp := c.Run(context.Background(), Request{Message: "Actualités ophtalmologie"})

	assert.Zero(t, h.web.calls)
	assert.False(t, resp.DebugInfo.InternetUsed)
}

func TestRunAssignmentReplyForcesTaskIntent(t *testing.T) {
	c, h := newHarness(intent.Intent{QueryType: intent.QueryGeneral})
	history := []chat.Turn{
		{IsUser: true, Content: "Crée une tâche pour rappeler le labo"},
		{IsUser: false, Content: "Je peux créer la tâche « rappeler le labo ». " + tasks.AssignQuestion},
	}

	resp := c.Run(context.Background(), Request{Message: "David", ConversationHistory: history})

	assert.Zero(t, h.cls.classified)
	assert.Equal(t, 1, h.cls.forced)
	assert.Equal(t, 1, h.tasks.calls)
	assert.Equal(t, intent.QueryTask, resp.Analysis.QueryType)
	assert.True(t, resp.DebugInfo.AwaitingAssignment)
}
