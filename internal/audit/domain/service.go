package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donare/pkg/db/pagination"
	"gorm.io/gorm"
)

// RecordRequest describes one audited action. ID may be pre-allocated by the
// caller so a retried write lands on the same row.
type RecordRequest struct {
	ID          snowflake.ID
	ActorID     string
	ActorRole   string
	ActionType  string
	TargetType  string
	TargetID    string
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type ListRequest struct {
	pagination.Pagination
	TargetType string
	TargetID   string
	ActorID    string
	ActionType string
	Order      string
}

type ListResponse struct {
	pagination.PageInfo
	Entries []Entry `json:"entries"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*Entry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type Repository interface {
	// Insert is a no-op when an entry with the same id exists. It reports
	// whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Entry, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTarget    = errors.New("invalid_target")
	ErrInvalidOrder     = errors.New("invalid_order")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrUnavailable      = errors.New("audit_storage_unavailable")
)
