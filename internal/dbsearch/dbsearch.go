// Package dbsearch reads the recent meetings, documents and open todos a
// query may need from the relational store.
package dbsearch

import (
	"context"

	"github.com/rs/zerolog"

	"clinic-agent/internal/intent"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/store"
	"clinic-agent/internal/textnorm"
)

const (
	meetingLimit  = 10
	documentLimit = 15
	todoLimit     = 50
)

type Source interface {
	RecentMeetings(ctx context.Context, limit int) ([]store.Meeting, error)
	RecentDocuments(ctx context.Context, limit int) ([]store.Document, error)
	OpenTodos(ctx context.Context, limit int) ([]store.Todo, error)
}

type Context struct {
	Meetings    []store.Meeting  `json:"meetings"`
	Documents   []store.Document `json:"documents"`
	Todos       []store.Todo     `json:"todos"`
	RelevantIDs []string         `json:"relevantIds"`
}

func (c Context) Empty() bool {
	return len(c.Meetings) == 0 && len(c.Documents) == 0 && len(c.Todos) == 0
}

type Retriever struct {
	src Source
	log zerolog.Logger
}

func New(src Source) *Retriever {
	return &Retriever{src: src, log: logging.Component("dbsearch")}
}

// Fetch runs the reads the intent calls for. A failed read is logged and
// leaves its slice empty.
func (r *Retriever) Fetch(ctx context.Context, in intent.Intent) Context {
	var out Context

	if wantsMeetings(in) {
		m, err := r.src.RecentMeetings(ctx, meetingLimit)
		if err != nil {
			r.log.Warn().Err(err).Msg("meetings read failed")
		}
		out.Meetings = m
	}
	if wantsDocuments(in) {
		d, err := r.src.RecentDocuments(ctx, documentLimit)
		if err != nil {
			r.log.Warn().Err(err).Msg("documents read failed")
		}
		out.Documents = d
	}
	if wantsTodos(in) {
		t, err := r.src.OpenTodos(ctx, todoLimit)
		if err != nil {
			r.log.Warn().Err(err).Msg("todos read failed")
		}
		out.Todos = t
	}

	out.RelevantIDs = relevantIDs(out, append(append([]string{}, in.SearchTerms...), in.SpecificEntities...))
	return out
}

func wantsMeetings(in intent.Intent) bool {
	switch in.QueryType {
	case intent.QueryMeeting, intent.QueryMixed, intent.QueryGeneral:
		return true
	}
	return in.TimeContext != ""
}

func wantsDocuments(in intent.Intent) bool {
	switch in.QueryType {
	case intent.QueryDocument, intent.QueryMixed, intent.QueryGeneral:
		return true
	}
	return false
}

func wantsTodos(in intent.Intent) bool {
	switch in.QueryType {
	case intent.QueryTask, intent.QueryMixed:
		return true
	}
	return in.RequiresTasks
}

// relevantIDs lists meetings and documents whose title or summary mentions a
// search term.
func relevantIDs(c Context, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	var ids []string
	for _, m := range c.Meetings {
		if textnorm.ContainsAny(m.Title+" "+m.Summary, terms...) {
			ids = append(ids, m.ID)
		}
	}
	for _, d := range c.Documents {
		if textnorm.ContainsAny(d.OriginalName+" "+d.AIGeneratedName+" "+d.AISummary, terms...) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
