package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/donare/internal/authorization"
)

// UnspecifiedBeneficiaryType groups deliveries recorded without a type.
const UnspecifiedBeneficiaryType = "nao_informado"

// Figures are the two numbers every rollup reports.
type Figures struct {
	Delivered      int `json:"delivered"`
	PeopleImpacted int `json:"people_impacted"`
}

type CategoryImpact struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Figures
}

type BeneficiaryTypeImpact struct {
	BeneficiaryType string `json:"beneficiary_type"`
	Figures
}

type Totals struct {
	Figures
	Localities int `json:"localities"`
}

// Snapshot is a projection of the delivered donations. Version is the store
// version it was computed against.
type Snapshot struct {
	Categories       []CategoryImpact        `json:"categories"`
	BeneficiaryTypes []BeneficiaryTypeImpact `json:"beneficiary_types"`
	Totals           Totals                  `json:"totals"`
	Version          int64                   `json:"version"`
	ComputedAt       time.Time               `json:"computed_at"`
}

// Store keeps the current snapshot next to a monotonically increasing version.
type Store interface {
	Version(ctx context.Context) (int64, error)
	// Load returns nil when no snapshot is cached.
	Load(ctx context.Context) (*Snapshot, error)
	// Save keeps snapshot only if its version is still current.
	Save(ctx context.Context, snapshot *Snapshot) (bool, error)
	Invalidate(ctx context.Context) error
}

type Service interface {
	Snapshot(ctx context.Context, actor authorization.Subject) (*Snapshot, error)
	Invalidate(ctx context.Context) error
}

var (
	ErrForbidden = errors.New("forbidden")
	// ErrSnapshotContended is returned when deliveries keep landing while the
	// snapshot is recomputed. Callers may retry.
	ErrSnapshotContended = errors.New("impact_snapshot_contended")
	// ErrUnavailable wraps a failed read of the donations or categories.
	ErrUnavailable = errors.New("impact_unavailable")
)
