package dbsearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"clinic-agent/internal/intent"
	"clinic-agent/internal/store"
)

type fakeSource struct {
	meetings  []store.Meeting
	documents []store.Document
	todos     []store.Todo
	failTodos bool
	calls     []string
}

func (f *fakeSource) RecentMeetings(_ context.Context, _ int) ([]store.Meeting, error) {
	f.calls = append(f.calls, "meetings")
	return f.meetings, nil
}

func (f *fakeSource) RecentDocuments(_ context.Context, _ int) ([]store.Document, error) {
	f.calls = append(f.calls, "documents")
	return f.documents, nil
}

func (f *fakeSource) OpenTodos(_ context.Context, _ int) ([]store.Todo, error) {
	f.calls = append(f.calls, "todos")
	if f.failTodos {
		return nil, errors.New("db down")
	}
	return f.todos, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		meetings: []store.Meeting{
			{ID: "m1", Title: "Colloque budget 2025"},
			{ID: "m2", Title: "Point planning", Summary: "Horaires d'été"},
		},
		documents: []store.Document{{ID: "d1", OriginalName: "protocole-dupixent.pdf"}},
		todos:     []store.Todo{{ID: "t1", Description: "Commander des lentilles", Status: "confirmed"}},
	}
}

func TestFetchMeetingQuery(t *testing.T) {
	src := newSource()
	c := New(src).Fetch(context.Background(), intent.Intent{QueryType: intent.QueryMeeting, SearchTerms: []string{"Budget"}})

	assert.Equal(t, []string{"meetings"}, src.calls)
	assert.Len(t, c.Meetings, 2)
	assert.Empty(t, c.Todos)
	assert.Equal(t, []string{"m1"}, c.RelevantIDs)
}

func TestFetchTaskQuery(t *testing.T) {
	src := newSource()
	c := New(src).Fetch(context.Background(), intent.Intent{QueryType: intent.QueryTask, RequiresTasks: true})

	assert.Equal(t, []string{"todos"}, src.calls)
	assert.Len(t, c.Todos, 1)
	assert.False(t, c.Empty())
}

func TestFetchMixedQueryMatchesDocuments(t *testing.T) {
	src := newSource()
	c := New(src).Fetch(context.Background(), intent.Intent{QueryType: intent.QueryMixed, SearchTerms: []string{"dupixent"}})

	assert.ElementsMatch(t, []string{"meetings", "documents", "todos"}, src.calls)
	assert.Equal(t, []string{"d1"}, c.RelevantIDs)
}

func TestFetchReadFailureIsPartial(t *testing.T) {
	src := newSource()
	src.failTodos = true
	c := New(src).Fetch(context.Background(), intent.Intent{QueryType: intent.QueryMixed})

	assert.Empty(t, c.Todos)
	assert.Len(t, c.Meetings, 2)
	assert.Nil(t, c.RelevantIDs)
}
