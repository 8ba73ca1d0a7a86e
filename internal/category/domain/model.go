package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category is staff-maintained reference data. Rows are never updated.
type Category struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"column:nome;type:text;not null" json:"nome"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_categorias_slug" json:"slug"`
	Icon      *string      `gorm:"column:icone;type:text" json:"icone,omitempty"`
	Color     *string      `gorm:"column:cor;type:text" json:"cor,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Category) TableName() string { return "categorias" }
