package tasks

import (
	"clinic-agent/internal/roster"
	"clinic-agent/internal/store"
)

// Verb is the task operation a message asks for.
type Verb string

const (
	VerbList     Verb = "list"
	VerbCreate   Verb = "create"
	VerbUpdate   Verb = "update"
	VerbComplete Verb = "complete"
)

// Pending is a task whose creation waits for the user to name an assignee.
type Pending struct {
	Description          string          `json:"description"`
	WaitingForAssignment bool            `json:"waitingForAssignment"`
	RequestedName        string          `json:"requestedName,omitempty"`
	Suggestions          []roster.Person `json:"suggestions,omitempty"`
}

// Context is what the mutator hands to synthesis and to the client.
type Context struct {
	Action              Verb           `json:"action"`
	CurrentTasks        []store.Todo   `json:"currentTasks"`
	TaskCreated         *store.Todo    `json:"taskCreated,omitempty"`
	TaskUpdated         *store.Todo    `json:"taskUpdated,omitempty"`
	Assignee            *roster.Person `json:"assignee,omitempty"`
	PendingTaskCreation *Pending       `json:"pendingTaskCreation,omitempty"`
	Clarification       string         `json:"clarification,omitempty"`
	Error               string         `json:"error,omitempty"`
	HasTaskContext      bool           `json:"hasTaskContext"`
}
