// Package modlog defines moderation log entries written when a moderator
// changes instance roles or their assignments.
package modlog

import (
	"context"
	"time"

	"github.com/xraph/herald/id"
)

// Type names the moderation action.
type Type string

const (
	TypeAssignInstanceRole   Type = "assignInstanceRole"
	TypeUnassignInstanceRole Type = "unassignInstanceRole"
	TypeCreateInstanceRole   Type = "createInstanceRole"
	TypeUpdateInstanceRole   Type = "updateInstanceRole"
	TypeDeleteInstanceRole   Type = "deleteInstanceRole"
)

// Entry is one moderation action.
type Entry struct {
	ID          id.ModLogID    `json:"id" db:"id"`
	ModeratorID string         `json:"moderator_id" db:"moderator_id"`
	Type        Type           `json:"type" db:"type"`
	Info        map[string]any `json:"info" db:"info"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying moderation logs.
type QueryFilter struct {
	ModeratorID string     `json:"moderator_id,omitempty"`
	Type        Type       `json:"type,omitempty"`
	After       *time.Time `json:"after,omitempty"`
	Before      *time.Time `json:"before,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// Store defines persistence operations for moderation logs.
type Store interface {
	// CreateModLog persists a new entry.
	CreateModLog(ctx context.Context, e *Entry) error

	// ListModLogs returns entries matching the filter, newest first.
	ListModLogs(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountModLogs returns the number of entries matching the filter.
	CountModLogs(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeModLogs removes entries created before the given time.
	PurgeModLogs(ctx context.Context, before time.Time) (int64, error)
}
