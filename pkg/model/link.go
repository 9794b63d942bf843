package model

import "time"

// Link asserts that a task and a document are related. The pair is unique.
type Link struct {
	TaskID     int64     `json:"task_id"`
	DocumentID int64     `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by,omitempty"`
}

// LinkedDocument is a document seen through its link to a task.
type LinkedDocument struct {
	Document Document
	LinkedAt time.Time
	LinkedBy string
}

// LinkedTask is a task seen through its link to a document.
type LinkedTask struct {
	Task     Task
	LinkedAt time.Time
	LinkedBy string
}

// DocumentRef is the display shape of a document linked to a task.
type DocumentRef struct {
	ID         int64     `json:"id"`
	Preview    string    `json:"text"`
	Summary    string    `json:"summary,omitempty"`
	Source     string    `json:"source,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LinkedAt   time.Time `json:"linked_at"`
	LinkedBy   string    `json:"linked_by,omitempty"`
}

// TaskRef is the display shape of a task linked to a document.
type TaskRef struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Status   Status    `json:"status"`
	Priority Priority  `json:"priority"`
	Owner    string    `json:"owner,omitempty"`
	DueDate  string    `json:"due_date,omitempty"`
	LinkedAt time.Time `json:"linked_at"`
	LinkedBy string    `json:"linked_by,omitempty"`
}

// LinkResult summarises a batch link call. Linked counts the distinct ids
// that exist and now have a link; Created counts rows that were inserted by
// this call; Skipped lists ids ignored because the entity does not exist.
type LinkResult struct {
	Linked  int     `json:"linked_count"`
	Created int     `json:"created_count"`
	Skipped []int64 `json:"skipped_ids,omitempty"`
}

type UnlinkResult struct {
	Unlinked int `json:"unlinked_count"`
}
