package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/authorization"
	categorydomain "github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	"github.com/smallbiznis/donare/internal/donation/domain"
	"github.com/smallbiznis/donare/internal/donation/event"
	obslogger "github.com/smallbiznis/donare/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/donare/internal/observability/metrics"
	dbpkg "github.com/smallbiznis/donare/pkg/db"
	"github.com/smallbiznis/donare/pkg/db/pagination"
	"github.com/smallbiznis/donare/pkg/htmlsanitize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Outbox      domain.Outbox
	Policy      *authorization.Policy
	AuditSvc    auditdomain.Service
	CategorySvc categorydomain.Service
	Catalog     *config.CatalogHolder
	Invalidator domain.SnapshotInvalidator
	Clock       clock.Clock
	Config      config.Config
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	outbox      domain.Outbox
	policy      *authorization.Policy
	auditSvc    auditdomain.Service
	categorySvc categorydomain.Service
	catalog     *config.CatalogHolder
	invalidator domain.SnapshotInvalidator
	clock       clock.Clock
	metrics     *obsmetrics.Metrics

	auditMaxTries      uint
	auditRetryInterval time.Duration
}

func NewService(p Params) domain.Service {
	tries := p.Config.Audit.RetryMaxTries
	if tries <= 0 {
		tries = 1
	}
	interval := p.Config.Audit.RetryInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Service{
		db:                 p.DB,
		log:                p.Log.Named("donation.service"),
		genID:              p.GenID,
		repo:               p.Repo,
		outbox:             p.Outbox,
		policy:             p.Policy,
		auditSvc:           p.AuditSvc,
		categorySvc:        p.CategorySvc,
		catalog:            p.Catalog,
		invalidator:        p.Invalidator,
		clock:              p.Clock,
		metrics:            p.Metrics,
		auditMaxTries:      uint(tries),
		auditRetryInterval: interval,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Subject, req domain.CreateRequest) (*domain.Donation, error) {
	if !s.policy.Allows(actor, authorization.ActionDonationCreate) || strings.TrimSpace(actor.ID) == "" {
		return nil, domain.ErrForbidden
	}

	title := htmlsanitize.PlainText(req.Title)
	if title == "" {
		return nil, domain.NewValidationError("titulo", domain.ErrInvalidTitle)
	}
	if req.Quantity <= 0 {
		return nil, domain.NewValidationError("quantidade", domain.ErrInvalidQuantity)
	}
	unit := strings.ToLower(htmlsanitize.PlainText(req.Unit))
	if unit == "" || !s.catalog.Get().HasUnit(unit) {
		return nil, domain.NewValidationError("unidade", domain.ErrInvalidUnit)
	}

	mode := domain.DeliveryMode(strings.ToLower(strings.TrimSpace(string(req.DeliveryMode))))
	if !mode.Valid() {
		return nil, domain.NewValidationError("tipo_entrega", domain.ErrInvalidDeliveryMode)
	}
	pickup := optionalText(req.PickupAddress)
	dropoff := optionalText(req.DropoffAddress)
	switch mode {
	case domain.DeliveryCollectedByOrg:
		if pickup == nil {
			return nil, domain.NewValidationError("endereco_coleta", domain.ErrMissingPickupAddress)
		}
		dropoff = nil
	case domain.DeliveryDeliveredByDonor:
		if dropoff == nil {
			return nil, domain.NewValidationError("endereco_entrega", domain.ErrMissingDropoffAddress)
		}
		pickup = nil
	}

	if req.CategoryID == 0 {
		return nil, domain.NewValidationError("categoria_id", domain.ErrInvalidCategory)
	}
	if _, err := s.categorySvc.Get(ctx, req.CategoryID); err != nil {
		if errors.Is(err, categorydomain.ErrNotFound) {
			return nil, domain.NewValidationError("categoria_id", domain.ErrInvalidCategory)
		}
		return nil, domain.NewInfrastructureError("load category", err)
	}

	now := s.clock.Now()
	donation := &domain.Donation{
		ID:             s.genID.Generate(),
		Title:          title,
		Description:    optionalText(req.Description),
		CategoryID:     req.CategoryID,
		Quantity:       req.Quantity,
		Unit:           unit,
		Status:         domain.StatusRegistered,
		DeliveryMode:   mode,
		PickupAddress:  pickup,
		DropoffAddress: dropoff,
		Location:       optionalText(req.Location),
		Notes:          optionalText(req.Notes),
		DeliveryNotes:  optionalText(req.DeliveryNotes),
		DonorID:        strings.TrimSpace(actor.ID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, donation); err != nil {
		return nil, s.classifyWriteError("create donation", err)
	}

	s.metrics.RecordDonationCreated(ctx, string(mode))
	s.log.Info("donation created",
		zap.String("donation_id", donation.ID.String()),
		zap.String("donor_id", donation.DonorID),
	)
	return donation, nil
}

func (s *Service) Get(ctx context.Context, actor authorization.Subject, id snowflake.ID) (*domain.Donation, error) {
	if !s.policy.Allows(actor, authorization.ActionDonationView) {
		return nil, domain.ErrForbidden
	}
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	return s.load(ctx, id)
}

func (s *Service) List(ctx context.Context, actor authorization.Subject, req domain.ListRequest) (domain.ListResponse, error) {
	if !s.policy.Allows(actor, authorization.ActionDonationView) {
		return domain.ListResponse{}, domain.ErrForbidden
	}

	filter := domain.ListFilter{
		DonorID:       strings.TrimSpace(req.DonorID),
		BeneficiaryID: strings.TrimSpace(req.BeneficiaryID),
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.ListResponse{}, domain.NewValidationError("status", err)
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		categoryID, err := snowflake.ParseString(raw)
		if err != nil || categoryID == 0 {
			return domain.ListResponse{}, domain.NewValidationError("category_id", domain.ErrInvalidID)
		}
		filter.CategoryID = categoryID
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		keyset, err := pagination.DecodeKeyset(token)
		if err != nil {
			return domain.ListResponse{}, domain.NewValidationError("page_token", domain.ErrInvalidPageToken)
		}
		filter.Cursor = &domain.Cursor{ID: keyset.ID, CreatedAt: keyset.CreatedAt}
	}

	pageSize := pagination.NormalizePageSize(req.PageSize, defaultPageSize, maxPageSize)
	filter.Limit = pageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, domain.NewInfrastructureError("list donations", err)
	}

	items, pageInfo := pagination.Paginate(items, pageSize, func(item *domain.Donation) pagination.Keyset {
		return pagination.Keyset{ID: item.ID, CreatedAt: item.CreatedAt}
	})

	donations := make([]domain.Donation, 0, len(items))
	for _, item := range items {
		if item != nil {
			donations = append(donations, *item)
		}
	}
	return domain.ListResponse{PageInfo: pageInfo, Donations: donations}, nil
}

// Transition is the only path that changes a donation's status.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error) {
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		return domain.TransitionResult{}, domain.NewValidationError("action", err)
	}
	if req.DonationID == 0 {
		return domain.TransitionResult{}, domain.NewValidationError("id", domain.ErrInvalidID)
	}
	log := obslogger.WithDonation(s.log, req.DonationID.String(), string(action))

	donation, err := s.load(ctx, req.DonationID)
	if err != nil {
		return domain.TransitionResult{}, err
	}

	payload := normalizePayload(action, req.Actor, req.Payload)
	decision := s.policy.Decide(req.Actor, action.Policy(), &authorization.Target{
		Status:        string(donation.Status),
		DonorID:       donation.DonorID,
		BeneficiaryID: payload.BeneficiaryID,
	})
	if !decision.Allowed() {
		log.Debug("transition denied",
			zap.String("actor_role", req.Actor.Role.String()),
			zap.String("reason", string(decision.Reason)),
		)
		s.metrics.RecordRejection(ctx, string(action), "forbidden")
		return domain.TransitionResult{}, domain.ErrForbidden
	}

	target := action.Target()
	if donation.Status.Terminal() {
		s.metrics.RecordRejection(ctx, string(action), "terminal")
		return domain.TransitionResult{}, &domain.TransitionError{Current: donation.Status, Requested: target, Action: action}
	}
	if donation.Status == target {
		if action == domain.ActionClaim && stringValue(donation.BeneficiaryID) != payload.BeneficiaryID {
			s.metrics.RecordRejection(ctx, string(action), "claimed_by_other")
			return domain.TransitionResult{}, &domain.TransitionError{Current: donation.Status, Requested: target, Action: action}
		}
		return domain.TransitionResult{Donation: donation, Applied: false, From: donation.Status}, nil
	}
	if !action.Allowed(donation.Status) {
		s.metrics.RecordRejection(ctx, string(action), "invalid_transition")
		return domain.TransitionResult{}, &domain.TransitionError{Current: donation.Status, Requested: target, Action: action}
	}

	now := s.clock.Now()
	next, changes, err := s.apply(action, donation, payload, req.Actor, now)
	if err != nil {
		reason := "validation"
		if errors.Is(err, domain.ErrForbidden) {
			reason = "forbidden"
		}
		s.metrics.RecordRejection(ctx, string(action), reason)
		return domain.TransitionResult{}, err
	}

	evt := &domain.Event{
		ID:           event.NewID(now),
		DonationID:   donation.ID,
		EventType:    action.Event(),
		FromStatus:   donation.Status,
		ToStatus:     target,
		ActorID:      req.Actor.ID,
		ActorRole:    req.Actor.Role.String(),
		Payload:      eventPayload(action, payload),
		AuditEntryID: s.genID.Generate(),
		CreatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swapped, err := s.repo.CompareAndSwap(ctx, tx, donation.ID, donation.Status, changes)
		if err != nil {
			return err
		}
		if !swapped {
			return domain.ErrConflict
		}
		return s.outbox.Append(ctx, tx, evt)
	})
	if err != nil {
		return domain.TransitionResult{}, s.classifyWriteError("transition donation", err)
	}

	log.Info("donation transitioned",
		zap.String("from_status", string(donation.Status)),
		zap.String("to_status", string(target)),
		zap.String("event_id", evt.ID),
	)
	s.metrics.RecordTransition(ctx, string(action), string(donation.Status), string(target))

	// Work after commit must not be cut short by the caller going away.
	ctx = context.WithoutCancel(ctx)
	if target == domain.StatusDelivered {
		s.invalidateSnapshot(ctx)
	}

	result := domain.TransitionResult{Donation: next, Applied: true, From: donation.Status, EventID: evt.ID}
	if err := s.recordAudit(ctx, evt); err != nil {
		return result, err
	}
	return result, nil
}

// Delete removes a donation in any state. It is an administrative override,
// not a lifecycle transition, and is always audited.
func (s *Service) Delete(ctx context.Context, actor authorization.Subject, id snowflake.ID) error {
	if !s.policy.Allows(actor, authorization.ActionDonationDelete) {
		return domain.ErrForbidden
	}
	if id == 0 {
		return domain.ErrNotFound
	}

	donation, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	evt := &domain.Event{
		ID:         event.NewID(now),
		DonationID: donation.ID,
		EventType:  domain.EventDeleted,
		FromStatus: donation.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role.String(),
		Payload: datatypes.JSONMap{
			"titulo":    donation.Title,
			"doador_id": donation.DonorID,
		},
		AuditEntryID: s.genID.Generate(),
		CreatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, donation.ID, donation.Status)
		if err != nil {
			return err
		}
		if deleted {
			return s.outbox.Append(ctx, tx, evt)
		}
		// The status moved since it was read; the caller re-reads and retries.
		current, err := s.repo.FindByID(ctx, tx, donation.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return s.classifyWriteError("delete donation", err)
	}

	s.log.Info("donation deleted",
		zap.String("donation_id", donation.ID.String()),
		zap.String("from_status", string(donation.Status)),
		zap.String("actor_id", actor.ID),
	)
	s.metrics.RecordDeletion(ctx, string(donation.Status))

	ctx = context.WithoutCancel(ctx)
	if donation.Status == domain.StatusDelivered {
		s.invalidateSnapshot(ctx)
	}
	return s.recordAudit(ctx, evt)
}

// apply computes the donation after the action and the column changes that
// get there. Transition timestamps are only ever filled, never replaced.
func (s *Service) apply(action domain.Action, current *domain.Donation, payload domain.TransitionPayload, actor authorization.Subject, now time.Time) (*domain.Donation, map[string]any, error) {
	next := *current
	target := action.Target()
	next.Status = target
	next.UpdatedAt = now
	changes := map[string]any{
		"status":     string(target),
		"updated_at": now,
	}

	switch action {
	case domain.ActionClaim:
		beneficiary := payload.BeneficiaryID
		next.BeneficiaryID = &beneficiary
		changes["beneficiario_id"] = beneficiary
		if next.ClaimedAt == nil {
			next.ClaimedAt = &now
			changes["data_reserva"] = now
		}
	case domain.ActionAccept:
		staffID := strings.TrimSpace(actor.ID)
		if staffID == "" {
			return nil, nil, domain.ErrForbidden
		}
		next.StaffID = &staffID
		changes["responsavel_staff_id"] = staffID
		if next.AcceptedAt == nil {
			next.AcceptedAt = &now
			changes["data_aceita"] = now
		}
	case domain.ActionCancel:
		if next.CancelledAt == nil {
			next.CancelledAt = &now
			changes["data_cancelamento"] = now
		}
	case domain.ActionDeliver:
		beneficiaryType := strings.ToLower(payload.BeneficiaryType)
		if beneficiaryType == "" || !s.catalog.Get().HasBeneficiaryType(beneficiaryType) {
			return nil, nil, domain.NewValidationError("tipo_beneficiario", domain.ErrInvalidBeneficiaryType)
		}
		people := domain.DefaultPeopleImpacted
		if payload.PeopleImpacted != nil {
			people = *payload.PeopleImpacted
		}
		if people <= 0 {
			return nil, nil, domain.NewValidationError("pessoas_impactadas", domain.ErrInvalidPeopleImpacted)
		}
		if payload.DeliveryLocality == "" {
			return nil, nil, domain.NewValidationError("localidade_entrega", domain.ErrMissingLocality)
		}

		next.BeneficiaryType = &beneficiaryType
		next.PeopleImpacted = &people
		next.DeliveryLocality = &payload.DeliveryLocality
		changes["tipo_beneficiario"] = beneficiaryType
		changes["pessoas_impactadas"] = people
		changes["localidade_entrega"] = payload.DeliveryLocality
		if notes := optionalText(payload.ImpactNotes); notes != nil {
			next.ImpactNotes = notes
			changes["observacoes_impacto"] = *notes
		}
		if notes := optionalText(payload.Note); notes != nil {
			next.DeliveryNotes = notes
			changes["observacoes_entrega"] = *notes
		}
		if next.DeliveredAt == nil {
			next.DeliveredAt = &now
			changes["data_entrega"] = now
		}
	}
	return &next, changes, nil
}

func (s *Service) recordAudit(ctx context.Context, evt *domain.Event) error {
	req := evt.AuditRecord()

	_, err := backoff.Retry(ctx, func() (*auditdomain.Entry, error) {
		entry, err := s.auditSvc.Record(ctx, req)
		if err != nil && (errors.Is(err, auditdomain.ErrInvalidAction) || errors.Is(err, auditdomain.ErrInvalidTarget)) {
			return nil, backoff.Permanent(err)
		}
		return entry, err
	}, s.retryOptions()...)
	if err != nil {
		s.log.Warn("audit write deferred to relay",
			zap.String("event_id", evt.ID),
			zap.String("donation_id", evt.DonationID.String()),
			zap.String("event_type", string(evt.EventType)),
			zap.Error(err),
		)
		s.metrics.RecordAuditDeferred(ctx, string(evt.EventType))
		return domain.NewInfrastructureError("audit donation change", fmt.Errorf("%w: %v", domain.ErrAuditDeferred, err))
	}

	if err := s.outbox.MarkAudited(ctx, s.db, evt.ID, s.clock.Now()); err != nil {
		// The relay rewrites the same entry id, so the entry cannot be duplicated.
		s.log.Warn("failed to mark event audited", zap.String("event_id", evt.ID), zap.Error(err))
	}
	return nil
}

// invalidateSnapshot retries like the audit write. A snapshot left valid
// keeps counting the old state until its TTL runs out.
func (s *Service) invalidateSnapshot(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.invalidator.Invalidate(ctx)
	}, s.retryOptions()...)
	if err != nil {
		s.log.Error("impact snapshot invalidation failed", zap.Error(err))
	}
}

func (s *Service) retryOptions() []backoff.RetryOption {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.auditRetryInterval
	policy.MaxInterval = 20 * s.auditRetryInterval
	return []backoff.RetryOption{backoff.WithBackOff(policy), backoff.WithMaxTries(s.auditMaxTries)}
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Donation, error) {
	donation, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.NewInfrastructureError("load donation", err)
	}
	if donation == nil {
		return nil, domain.ErrNotFound
	}
	return donation, nil
}

func (s *Service) classifyWriteError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict
	case dbpkg.IsSerializationFailure(err):
		return domain.ErrConflict
	case dbpkg.IsCheckViolation(err):
		s.log.Warn("donation rejected by schema constraint", zap.String("op", op), zap.Error(err))
		return domain.NewValidationError("donation", domain.ErrInvalidDonation)
	default:
		return domain.NewInfrastructureError(op, err)
	}
}

func normalizePayload(action domain.Action, actor authorization.Subject, payload domain.TransitionPayload) domain.TransitionPayload {
	out := domain.TransitionPayload{
		BeneficiaryID:    strings.TrimSpace(payload.BeneficiaryID),
		Note:             htmlsanitize.PlainText(payload.Note),
		BeneficiaryType:  strings.TrimSpace(payload.BeneficiaryType),
		PeopleImpacted:   payload.PeopleImpacted,
		DeliveryLocality: htmlsanitize.PlainText(payload.DeliveryLocality),
		ImpactNotes:      htmlsanitize.PlainText(payload.ImpactNotes),
	}
	if action == domain.ActionClaim && out.BeneficiaryID == "" {
		out.BeneficiaryID = strings.TrimSpace(actor.ID)
	}
	return out
}

func eventPayload(action domain.Action, payload domain.TransitionPayload) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if payload.Note != "" {
		out["note"] = payload.Note
	}
	switch action {
	case domain.ActionClaim:
		out["beneficiario_id"] = payload.BeneficiaryID
	case domain.ActionDeliver:
		out["tipo_beneficiario"] = strings.ToLower(payload.BeneficiaryType)
		people := domain.DefaultPeopleImpacted
		if payload.PeopleImpacted != nil {
			people = *payload.PeopleImpacted
		}
		out["pessoas_impactadas"] = people
		out["localidade_entrega"] = payload.DeliveryLocality
	}
	return out
}

func optionalText(value string) *string {
	cleaned := htmlsanitize.PlainText(value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
