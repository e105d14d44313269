package agent

import (
	"clinic-agent/internal/action"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/tasks"
)

type Request struct {
	Message             string         `json:"message"`
	Context             map[string]any `json:"context,omitempty"`
	ConversationHistory []chat.Turn    `json:"conversationHistory"`
}

type SourceType string

const (
	SourceEmbedding SourceType = "embedding"
	SourceInternet  SourceType = "internet"
)

// Source is client-side metadata about what the answer drew on. It is never
// written into the answer text.
type Source struct {
	Type         SourceType `json:"type"`
	ID           string     `json:"id,omitempty"`
	DocumentID   string     `json:"documentId,omitempty"`
	MeetingID    string     `json:"meetingId,omitempty"`
	DocumentType string     `json:"documentType,omitempty"`
	ChunkIndex   int        `json:"chunkIndex"`
	Similarity   float64    `json:"similarity"`
	Excerpt      string     `json:"excerpt,omitempty"`
	URL          string     `json:"url,omitempty"`
}

type DatabaseContext struct {
	Meetings    int      `json:"meetings"`
	Documents   int      `json:"documents"`
	Todos       int      `json:"todos"`
	RelevantIDs []string `json:"relevantIds"`
}

type DebugInfo struct {
	Path               string           `json:"path"`
	StageMillis        map[string]int64 `json:"stageMillis"`
	TotalMillis        int64            `json:"totalMillis"`
	VectorIterations   int              `json:"vectorIterations"`
	ChunksFound        int              `json:"chunksFound"`
	InternetUsed       bool             `json:"internetUsed"`
	Enrichment         string           `json:"enrichment,omitempty"`
	WebConfidence      int              `json:"webConfidence,omitempty"`
	AwaitingAssignment bool             `json:"awaitingAssignment,omitempty"`
}

type Response struct {
	Response        string          `json:"response"`
	Sources         []Source        `json:"sources"`
	TaskContext     *tasks.Context  `json:"taskContext,omitempty"`
	DatabaseContext DatabaseContext `json:"databaseContext"`
	Analysis        intent.Intent   `json:"analysis"`
	DebugInfo       DebugInfo       `json:"debugInfo"`
	Actions         []action.Action `json:"actions"`
}
