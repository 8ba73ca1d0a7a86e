package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry is one append-only row of the moderation audit trail.
type Entry struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID     string            `gorm:"column:admin_id;type:text;not null;index" json:"admin_id"`
	ActorRole   string            `gorm:"type:text;not null" json:"actor_role"`
	ActionType  string            `gorm:"type:text;not null;index" json:"action_type"`
	TargetType  string            `gorm:"type:text;not null" json:"target_type"`
	TargetID    string            `gorm:"type:text;not null;index" json:"target_id"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
}

func (Entry) TableName() string { return "admin_actions" }

const (
	TargetTypeDonation = "donation"
	TargetTypeCategory = "category"
)

// ActorSystem is recorded when no caller identity is attached to the entry.
const ActorSystem = "system"

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

type ListFilter struct {
	TargetType string
	TargetID   string
	ActorID    string
	ActionType string
	Order      Order
	Cursor     *Cursor
	Limit      int
}
