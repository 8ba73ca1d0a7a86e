package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, donation *Donation) error
	// FindByID returns nil, nil when the donation does not exist.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Donation, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Donation, error)
	ListDelivered(ctx context.Context, db *gorm.DB) ([]*Donation, error)
	// CompareAndSwap applies changes only while the stored status equals
	// expected. It reports whether a row was updated.
	CompareAndSwap(ctx context.Context, db *gorm.DB, id snowflake.ID, expected Status, changes map[string]any) (bool, error)
	// Delete removes the row only while its status equals expected.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, expected Status) (bool, error)
}
