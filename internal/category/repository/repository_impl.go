package repository

import (
	"github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore[domain.Category](db)
}
