package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventType string

const (
	EventClaimed   EventType = "donation.claimed"
	EventAccepted  EventType = "donation.accepted"
	EventCancelled EventType = "donation.cancelled"
	EventDelivered EventType = "donation.delivered"
	EventDeleted   EventType = "donation.deleted"
)

// Event is the outbox row written in the same transaction as a lifecycle
// change. AuditEntryID is allocated up front so the post-commit audit write
// and the relay converge on one audit row.
type Event struct {
	ID           string            `gorm:"primaryKey;type:varchar(26)" json:"id"`
	DonationID   snowflake.ID      `gorm:"not null;index" json:"donation_id"`
	EventType    EventType         `gorm:"type:text;not null" json:"event_type"`
	FromStatus   Status            `gorm:"type:text;not null" json:"from_status"`
	ToStatus     Status            `gorm:"type:text;not null" json:"to_status"`
	ActorID      string            `gorm:"type:text;not null" json:"actor_id"`
	ActorRole    string            `gorm:"type:text;not null" json:"actor_role"`
	Payload      datatypes.JSONMap `gorm:"type:json" json:"payload,omitempty"`
	AuditEntryID snowflake.ID      `gorm:"not null" json:"audit_entry_id"`
	CreatedAt    time.Time         `gorm:"not null;index:ix_donation_events_pending,priority:2" json:"created_at"`
	AuditedAt    *time.Time        `gorm:"index:ix_donation_events_pending,priority:1" json:"audited_at,omitempty"`
}

func (Event) TableName() string { return "donation_events" }

// AuditRecord is the audit entry this event must produce.
func (e *Event) AuditRecord() auditdomain.RecordRequest {
	metadata := map[string]any{
		"event_id":   e.ID,
		"old_status": string(e.FromStatus),
	}
	if e.ToStatus != "" {
		metadata["new_status"] = string(e.ToStatus)
	}
	for key, value := range e.Payload {
		metadata[key] = value
	}

	description := string(e.EventType) + " from " + string(e.FromStatus)
	if e.ToStatus != "" {
		description += " to " + string(e.ToStatus)
	}

	return auditdomain.RecordRequest{
		ID:          e.AuditEntryID,
		ActorID:     e.ActorID,
		ActorRole:   e.ActorRole,
		ActionType:  string(e.EventType),
		TargetType:  auditdomain.TargetTypeDonation,
		TargetID:    e.DonationID.String(),
		Description: description,
		Metadata:    metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// Outbox persists lifecycle events and tracks which ones have been audited.
type Outbox interface {
	Append(ctx context.Context, tx *gorm.DB, event *Event) error
	MarkAudited(ctx context.Context, db *gorm.DB, eventID string, at time.Time) error
	// Pending returns unaudited events created at or before olderThan, oldest first.
	Pending(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*Event, error)
	CountPending(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error)
}

// SnapshotInvalidator is notified whenever the delivered set changes.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}
