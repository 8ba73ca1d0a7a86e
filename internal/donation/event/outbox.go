package event

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/donare/internal/donation/domain"
	"gorm.io/gorm"
)

type outbox struct{}

func ProvideOutbox() domain.Outbox {
	return &outbox{}
}

// NewID returns a lexically time-ordered event id.
func NewID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func (o *outbox) Append(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = NewID(event.CreatedAt)
	}
	return tx.WithContext(ctx).Create(event).Error
}

func (o *outbox) MarkAudited(ctx context.Context, db *gorm.DB, eventID string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE donation_events SET audited_at = ? WHERE id = ? AND audited_at IS NULL`,
		at,
		eventID,
	).Error
}

func (o *outbox) Pending(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*domain.Event, error) {
	var events []*domain.Event
	stmt := db.WithContext(ctx).
		Where("audited_at IS NULL AND created_at <= ?", olderThan).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (o *outbox) CountPending(ctx context.Context, db *gorm.DB, olderThan time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("audited_at IS NULL AND created_at <= ?", olderThan).
		Count(&count).Error
	return count, err
}
