package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/authorization"
	"github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/internal/clock"
	dbpkg "github.com/smallbiznis/donare/pkg/db"
	"github.com/smallbiznis/donare/pkg/db/option"
	"github.com/smallbiznis/donare/pkg/htmlsanitize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var sortableFields = map[string]bool{
	"nome":       true,
	"created_at": true,
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Policy   *authorization.Policy
	AuditSvc auditdomain.Service
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	policy   *authorization.Policy
	auditSvc auditdomain.Service
	clock    clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("category.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		policy:   p.Policy,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Subject, req domain.CreateRequest) (*domain.Category, error) {
	if !s.policy.Allows(actor, authorization.ActionCategoryCreate) {
		return nil, domain.ErrForbidden
	}

	name := htmlsanitize.PlainText(req.Name)
	categorySlug := slug.Make(name)
	if name == "" || categorySlug == "" {
		return nil, domain.ErrInvalidName
	}

	var color *string
	if req.Color != nil {
		value := strings.TrimSpace(*req.Color)
		if value != "" {
			if !hexColor.MatchString(value) {
				return nil, domain.ErrInvalidColor
			}
			value = strings.ToLower(value)
			color = &value
		}
	}
	var icon *string
	if req.Icon != nil {
		if value := htmlsanitize.PlainText(*req.Icon); value != "" {
			icon = &value
		}
	}

	existing, err := s.repo.FindOne(ctx, &domain.Category{Slug: categorySlug})
	if err != nil {
		return nil, unavailable("find category", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateName
	}

	category := &domain.Category{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      categorySlug,
		Icon:      icon,
		Color:     color,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, unavailable("create category", err)
	}

	if _, err := s.auditSvc.Record(ctx, auditdomain.RecordRequest{
		ActorID:     actor.ID,
		ActorRole:   actor.Role.String(),
		ActionType:  "category.created",
		TargetType:  auditdomain.TargetTypeCategory,
		TargetID:    category.ID.String(),
		Description: "category " + category.Slug + " created",
		Metadata:    map[string]any{"slug": category.Slug},
	}); err != nil {
		s.log.Warn("category audit write failed",
			zap.String("category_id", category.ID.String()),
			zap.Error(err),
		)
	}

	return category, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Category, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			Field: strings.TrimSpace(req.SortBy),
			Desc:  strings.EqualFold(strings.TrimSpace(req.OrderBy), "desc"),
			Allow: sortableFields,
		}),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "slug",
			Operator: option.EQ,
			Value:    slug.Make(name),
		}))
	}

	items, err := s.repo.Find(ctx, &domain.Category{}, opts...)
	if err != nil {
		return nil, unavailable("list categories", err)
	}

	out := make([]domain.Category, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Category, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	item, err := s.repo.FindOne(ctx, &domain.Category{ID: id})
	if err != nil {
		return nil, unavailable("get category", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Names(ctx context.Context) (map[snowflake.ID]string, error) {
	items, err := s.repo.Find(ctx, &domain.Category{})
	if err != nil {
		return nil, unavailable("list category names", err)
	}
	names := make(map[snowflake.ID]string, len(items))
	for _, item := range items {
		if item != nil {
			names[item.ID] = item.Name
		}
	}
	return names, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
}
