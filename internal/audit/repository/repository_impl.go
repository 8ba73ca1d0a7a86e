package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/donare/internal/audit/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) (bool, error) {
	if entry == nil {
		return false, nil
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	stmt := db.WithContext(ctx).Model(&domain.Entry{})

	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if actorID := strings.TrimSpace(filter.ActorID); actorID != "" {
		stmt = stmt.Where("admin_id = ?", actorID)
	}
	if actionType := strings.TrimSpace(filter.ActionType); actionType != "" {
		stmt = stmt.Where("action_type = ?", actionType)
	}

	if filter.Order == domain.OrderAsc {
		if filter.Cursor != nil {
			stmt = stmt.Where("(created_at > ?) OR (created_at = ? AND id > ?)",
				filter.Cursor.CreatedAt,
				filter.Cursor.CreatedAt,
				filter.Cursor.ID,
			)
		}
		stmt = stmt.Order("created_at asc, id asc")
	} else {
		if filter.Cursor != nil {
			stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
				filter.Cursor.CreatedAt,
				filter.Cursor.CreatedAt,
				filter.Cursor.ID,
			)
		}
		stmt = stmt.Order("created_at desc, id desc")
	}

	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
