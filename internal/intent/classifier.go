package intent

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"clinic-agent/internal/ai"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/jsonx"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/textnorm"
)

const (
	historyWindow = 6
	maxTerms      = 5
)

// Synonyms maps a folded term to alternative phrasings used to widen searches.
type Synonyms map[string][]string

// DefaultSynonyms covers the vocabulary the clinic uses most.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		"reunion":     {"meeting", "séance", "colloque"},
		"tache":       {"todo", "action"},
		"document":    {"fichier", "rapport"},
		"patient":     {"consultation", "rendez-vous"},
		"fournisseur": {"prestataire", "vendeur"},
		"budget":      {"coût", "dépense"},
		"planning":    {"horaire", "agenda"},
	}
}

type Classifier struct {
	llm      ai.Completer
	synonyms Synonyms
	log      zerolog.Logger
}

func NewClassifier(llm ai.Completer, synonyms Synonyms) *Classifier {
	if synonyms == nil {
		synonyms = DefaultSynonyms()
	}
	return &Classifier{llm: llm, synonyms: synonyms, log: logging.Component("classifier")}
}

// Classify never fails: task-related messages short-circuit to a keyword
// intent, others go to the model, and any model or parse error falls back to
// the heuristic classifier.
func (c *Classifier) Classify(ctx context.Context, message string, history []chat.Turn) Intent {
	if IsTaskRelated(message) {
		return c.TaskIntent(message)
	}
	if c.llm == nil {
		return c.Fallback(message)
	}

	out, err := c.llm.Complete(ctx, ai.Request{
		System:      ai.IntentSystemPrompt,
		User:        ai.BuildIntentPrompt(message, chat.Format(chat.Last(history, historyWindow))),
		Temperature: 0,
		MaxTokens:   500,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("intent completion failed, using fallback")
		return c.Fallback(message)
	}

	obj, err := jsonx.ExtractObject(out)
	if err != nil {
		c.log.Warn().Err(err).Msg("intent response not parseable, using fallback")
		return c.Fallback(message)
	}
	return c.fromJSON(obj, message)
}

func (c *Classifier) TaskIntent(message string) Intent {
	in := Intent{
		RequiresDatabase: true,
		RequiresTasks:    true,
		QueryType:        QueryTask,
		Priority:         PriorityDatabase,
		SearchTerms:      ExtractTerms(message, maxTerms),
		Action:           detectAction(message),
		TimeContext:      detectTime(message),
		Source:           SourceKeyword,
	}
	in.Synonyms = c.expand(in.SearchTerms)
	return in
}

// Fallback is the deterministic heuristic classifier. It depends only on the
// message and the synonym table.
func (c *Classifier) Fallback(message string) Intent {
	meeting := textnorm.ContainsAny(message, meetingKeywords...)
	document := textnorm.ContainsAny(message, documentKeywords...)
	task := IsTaskRelated(message)
	internet := textnorm.ContainsAny(message, internetKeywords...)
	assistance := textnorm.ContainsAny(message, assistanceKeywords...)

	in := Intent{
		SearchTerms: ExtractTerms(message, maxTerms),
		Action:      detectAction(message),
		TimeContext: detectTime(message),
		Source:      SourceFallback,
	}
	in.Synonyms = c.expand(in.SearchTerms)

	hits := 0
	for _, h := range []bool{meeting, document, task} {
		if h {
			hits++
		}
	}
	switch {
	case hits > 1:
		in.QueryType = QueryMixed
	case meeting:
		in.QueryType = QueryMeeting
	case document:
		in.QueryType = QueryDocument
	case task:
		in.QueryType = QueryTask
	case assistance:
		in.QueryType = QueryAssistance
	default:
		in.QueryType = QueryGeneral
	}

	in.RequiresTasks = task
	in.RequiresDatabase = meeting || document || task
	in.RequiresEmbeddings = in.QueryType != QueryTask && in.QueryType != QueryAssistance
	in.RequiresInternet = internet
	in.FuzzyMatching = len(in.SearchTerms) > 0

	switch {
	case internet && !meeting && !document:
		in.Priority = PriorityInternet
	case in.RequiresEmbeddings:
		in.Priority = PriorityEmbeddings
	default:
		in.Priority = PriorityDatabase
	}
	return in
}

func (c *Classifier) fromJSON(obj, message string) Intent {
	r := gjson.Parse(obj)

	in := Intent{
		RequiresDatabase:      r.Get("requiresDatabase").Bool(),
		RequiresEmbeddings:    r.Get("requiresEmbeddings").Bool(),
		RequiresInternet:      r.Get("requiresInternet").Bool(),
		QueryType:             QueryType(strings.ToLower(r.Get("queryType").String())),
		Priority:              Priority(strings.ToLower(r.Get("priority").String())),
		SpecificEntities:      stringArray(r.Get("specificEntities")),
		TimeContext:           r.Get("timeContext").String(),
		SearchTerms:           stringArray(r.Get("searchTerms")),
		Synonyms:              stringArray(r.Get("synonyms")),
		FuzzyMatching:         r.Get("fuzzyMatching").Bool(),
		RequiresClarification: r.Get("requiresClarification").Bool(),
		Source:                SourceLLM,
	}

	if a := r.Get("action"); a.IsObject() {
		t := ActionType(strings.ToLower(a.Get("type").String()))
		if validActionType(t) {
			in.Action = &Action{Type: t, Target: a.Get("target").String()}
		}
	}

	if !validQueryType(in.QueryType) {
		in.QueryType = QueryGeneral
	}
	in.RequiresTasks = in.QueryType == QueryTask
	if len(in.SearchTerms) == 0 {
		in.SearchTerms = ExtractTerms(message, maxTerms)
	}
	if len(in.Synonyms) == 0 {
		in.Synonyms = c.expand(in.SearchTerms)
	}
	if !in.RequiresDatabase && !in.RequiresEmbeddings && !in.RequiresInternet {
		in.RequiresEmbeddings = true
	}
	if !validPriority(in.Priority) {
		switch {
		case in.RequiresEmbeddings:
			in.Priority = PriorityEmbeddings
		case in.RequiresInternet:
			in.Priority = PriorityInternet
		default:
			in.Priority = PriorityDatabase
		}
	}
	return in
}

// expand returns the synonyms of the given terms, deduplicated and sorted.
func (c *Classifier) expand(terms []string) []string {
	seen := map[string]bool{}
	for _, t := range terms {
		for _, s := range c.synonyms[textnorm.Fold(t)] {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func stringArray(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
