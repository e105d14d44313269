// Package intent classifies a user message into the retrieval sources and
// actions it needs.
package intent

type QueryType string

const (
	QueryMeeting    QueryType = "meeting"
	QueryDocument   QueryType = "document"
	QueryTask       QueryType = "task"
	QueryGeneral    QueryType = "general"
	QueryMixed      QueryType = "mixed"
	QueryAssistance QueryType = "assistance"
)

type Priority string

const (
	PriorityDatabase   Priority = "database"
	PriorityEmbeddings Priority = "embeddings"
	PriorityInternet   Priority = "internet"
)

type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionHelp   ActionType = "help"
)

type Action struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target,omitempty"`
}

// Source records which classification path produced an Intent.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

type Intent struct {
	RequiresDatabase      bool      `json:"requiresDatabase"`
	RequiresEmbeddings    bool      `json:"requiresEmbeddings"`
	RequiresInternet      bool      `json:"requiresInternet"`
	RequiresTasks         bool      `json:"requiresTasks"`
	QueryType             QueryType `json:"queryType"`
	Priority              Priority  `json:"priority"`
	SpecificEntities      []string  `json:"specificEntities"`
	TimeContext           string    `json:"timeContext,omitempty"`
	SearchTerms           []string  `json:"searchTerms"`
	Synonyms              []string  `json:"synonyms"`
	Action                *Action   `json:"action,omitempty"`
	FuzzyMatching         bool      `json:"fuzzyMatching"`
	RequiresClarification bool      `json:"requiresClarification"`
	Source                Source    `json:"source"`
}

func validQueryType(q QueryType) bool {
	switch q {
	case QueryMeeting, QueryDocument, QueryTask, QueryGeneral, QueryMixed, QueryAssistance:
		return true
	}
	return false
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityDatabase, PriorityEmbeddings, PriorityInternet:
		return true
	}
	return false
}

func validActionType(a ActionType) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionHelp:
		return true
	}
	return false
}
