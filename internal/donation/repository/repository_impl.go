package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donare/internal/donation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, donation *domain.Donation) error {
	if donation == nil {
		return nil
	}
	return db.WithContext(ctx).Create(donation).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Donation, error) {
	var donation domain.Donation
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM donations WHERE id = ? LIMIT 1`,
		id,
	).Scan(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if donation.ID == 0 {
		return nil, nil
	}
	return &donation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Donation, error) {
	var donations []*domain.Donation
	stmt := db.WithContext(ctx).Model(&domain.Donation{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != 0 {
		stmt = stmt.Where("categoria_id = ?", filter.CategoryID)
	}
	if donorID := strings.TrimSpace(filter.DonorID); donorID != "" {
		stmt = stmt.Where("doador_id = ?", donorID)
	}
	if beneficiaryID := strings.TrimSpace(filter.BeneficiaryID); beneficiaryID != "" {
		stmt = stmt.Where("beneficiario_id = ?", beneficiaryID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&donations).Error; err != nil {
		return nil, err
	}
	return donations, nil
}

func (r *repo) ListDelivered(ctx context.Context, db *gorm.DB) ([]*domain.Donation, error) {
	var donations []*domain.Donation
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusDelivered).
		Order("id asc").
		Find(&donations).Error
	if err != nil {
		return nil, err
	}
	return donations, nil
}

func (r *repo) CompareAndSwap(ctx context.Context, db *gorm.DB, id snowflake.ID, expected domain.Status, changes map[string]any) (bool, error) {
	if len(changes) == 0 {
		return false, nil
	}
	result := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(changes)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, expected domain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM donations WHERE id = ? AND status = ?`, id, expected)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
