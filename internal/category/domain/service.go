package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donare/internal/authorization"
)

type CreateRequest struct {
	Name  string  `json:"nome"`
	Icon  *string `json:"icone"`
	Color *string `json:"cor"`
}

type ListRequest struct {
	Name    string `form:"nome"`
	SortBy  string `form:"sort_by"`
	OrderBy string `form:"order_by"`
}

type Service interface {
	Create(ctx context.Context, actor authorization.Subject, req CreateRequest) (*Category, error)
	List(ctx context.Context, req ListRequest) ([]Category, error)
	Get(ctx context.Context, id snowflake.ID) (*Category, error)
	// Names maps every category id to its display name.
	Names(ctx context.Context) (map[snowflake.ID]string, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidColor  = errors.New("invalid_color")
	ErrDuplicateName = errors.New("duplicate_category")
	ErrNotFound      = errors.New("category_not_found")
	ErrForbidden     = errors.New("forbidden")
	ErrUnavailable   = errors.New("category_storage_unavailable")
)
