package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/audit/masking"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	obscontext "github.com/smallbiznis/donare/internal/observability/context"
	"github.com/smallbiznis/donare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   auditdomain.Repository
	Config config.Config
	Clock  clock.Clock
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        auditdomain.Repository
	clock       clock.Clock
	persist     bool
	mirrorToLog bool
}

func NewService(p Params) auditdomain.Service {
	destination := p.Config.Audit.Destination
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("audit.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       p.Clock,
		persist:     destination != config.AuditDestinationLog,
		mirrorToLog: destination != config.AuditDestinationDB,
	}
}

func (s *Service) Record(ctx context.Context, req auditdomain.RecordRequest) (*auditdomain.Entry, error) {
	actionType := strings.TrimSpace(req.ActionType)
	if actionType == "" {
		return nil, auditdomain.ErrInvalidAction
	}
	targetID := strings.TrimSpace(req.TargetID)
	if targetID == "" {
		return nil, auditdomain.ErrInvalidTarget
	}
	targetType := strings.TrimSpace(req.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorRole, actorID := s.resolveActor(ctx, req.ActorRole, req.ActorID)

	payload := map[string]any{}
	for key, value := range req.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}
	if _, ok := payload["request_id"]; !ok {
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			payload["request_id"] = requestID
		}
	}

	id := req.ID
	if id == 0 {
		id = s.genID.Generate()
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	entry := &auditdomain.Entry{
		ID:          id,
		ActorID:     actorID,
		ActorRole:   actorRole,
		ActionType:  actionType,
		TargetType:  targetType,
		TargetID:    targetID,
		Description: strings.TrimSpace(req.Description),
		Metadata:    datatypes.JSONMap(payload),
		CreatedAt:   createdAt.UTC(),
	}

	written := true
	if s.persist {
		inserted, err := s.repo.Insert(ctx, s.db, entry)
		if err != nil {
			s.log.Warn("failed to write audit entry",
				zap.String("action_type", actionType),
				zap.String("target_id", targetID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: write entry: %w", auditdomain.ErrUnavailable, err)
		}
		written = inserted
	}

	if s.mirrorToLog && written {
		s.mirror(entry)
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	order, err := parseOrder(req.Order)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	var cursor *auditdomain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		keyset, err := pagination.DecodeKeyset(token)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.Cursor{ID: keyset.ID, CreatedAt: keyset.CreatedAt}
	}

	pageSize := pagination.NormalizePageSize(req.PageSize, defaultPageSize, maxPageSize)

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorID:    req.ActorID,
		ActionType: req.ActionType,
		Order:      order,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, fmt.Errorf("%w: list entries: %w", auditdomain.ErrUnavailable, err)
	}

	items, pageInfo := pagination.Paginate(items, pageSize, func(item *auditdomain.Entry) pagination.Keyset {
		return pagination.Keyset{ID: item.ID, CreatedAt: item.CreatedAt}
	})

	entries := make([]auditdomain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return auditdomain.ListResponse{PageInfo: pageInfo, Entries: entries}, nil
}

func (s *Service) mirror(entry *auditdomain.Entry) {
	s.log.Info("audit",
		zap.Bool("audit", true),
		zap.String("audit_id", entry.ID.String()),
		zap.String("actor_id", entry.ActorID),
		zap.String("actor_role", entry.ActorRole),
		zap.String("action_type", entry.ActionType),
		zap.String("target_type", entry.TargetType),
		zap.String("target_id", entry.TargetID),
		zap.Any("metadata", masking.MaskPersonal(entry.Metadata)),
	)
}

func (s *Service) resolveActor(ctx context.Context, role, id string) (string, string) {
	role = strings.TrimSpace(role)
	id = strings.TrimSpace(id)
	if role == "" && id == "" {
		role, id = obscontext.ActorFromContext(ctx)
	}
	if id == "" {
		id = auditdomain.ActorSystem
	}
	if role == "" {
		role = auditdomain.ActorSystem
	}
	return role, id
}

func parseOrder(raw string) (auditdomain.Order, error) {
	switch auditdomain.Order(strings.ToLower(strings.TrimSpace(raw))) {
	case "", auditdomain.OrderDesc:
		return auditdomain.OrderDesc, nil
	case auditdomain.OrderAsc:
		return auditdomain.OrderAsc, nil
	default:
		return "", auditdomain.ErrInvalidOrder
	}
}

