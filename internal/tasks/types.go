package tasks

import "clinic-agent/internal/store"

type SetStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"` // pending|confirmed|completed
}

type ListResponse struct {
	Tasks []store.Todo `json:"tasks"`
	Count int          `json:"count"`
}
