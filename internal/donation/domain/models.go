package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type DeliveryMode string

const (
	DeliveryCollectedByOrg   DeliveryMode = "collected_by_org"
	DeliveryDeliveredByDonor DeliveryMode = "delivered_by_donor"
)

func (m DeliveryMode) Valid() bool {
	return m == DeliveryCollectedByOrg || m == DeliveryDeliveredByDonor
}

// DefaultPeopleImpacted is recorded when a delivery omits the head count.
const DefaultPeopleImpacted = 1

type Donation struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"column:titulo;type:text;not null" json:"titulo"`
	Description *string      `gorm:"column:descricao;type:text" json:"descricao,omitempty"`
	CategoryID  snowflake.ID `gorm:"column:categoria_id;not null;index" json:"categoria_id"`
	Quantity    int          `gorm:"column:quantidade;not null;check:chk_donations_quantidade,quantidade > 0" json:"quantidade"`
	Unit        string       `gorm:"column:unidade;type:text;not null" json:"unidade"`
	Status      Status       `gorm:"type:text;not null;index;check:chk_donations_status,status IN ('registered','claimed','accepted','delivered','cancelled')" json:"status"`

	DeliveryMode   DeliveryMode `gorm:"column:tipo_entrega;type:text;not null" json:"tipo_entrega"`
	PickupAddress  *string      `gorm:"column:endereco_coleta;type:text" json:"endereco_coleta,omitempty"`
	DropoffAddress *string      `gorm:"column:endereco_entrega;type:text" json:"endereco_entrega,omitempty"`
	Location       *string      `gorm:"column:localizacao;type:text" json:"localizacao,omitempty"`
	Notes          *string      `gorm:"column:observacoes;type:text" json:"observacoes,omitempty"`
	DeliveryNotes  *string      `gorm:"column:observacoes_entrega;type:text" json:"observacoes_entrega,omitempty"`

	DonorID       string  `gorm:"column:doador_id;type:text;not null;index" json:"doador_id"`
	BeneficiaryID *string `gorm:"column:beneficiario_id;type:text;index" json:"beneficiario_id,omitempty"`
	StaffID       *string `gorm:"column:responsavel_staff_id;type:text" json:"responsavel_staff_id,omitempty"`

	BeneficiaryType  *string `gorm:"column:tipo_beneficiario;type:text" json:"tipo_beneficiario,omitempty"`
	PeopleImpacted   *int    `gorm:"column:pessoas_impactadas;check:chk_donations_pessoas,pessoas_impactadas IS NULL OR pessoas_impactadas > 0" json:"pessoas_impactadas,omitempty"`
	DeliveryLocality *string `gorm:"column:localidade_entrega;type:text" json:"localidade_entrega,omitempty"`
	ImpactNotes      *string `gorm:"column:observacoes_impacto;type:text" json:"observacoes_impacto,omitempty"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	ClaimedAt   *time.Time `gorm:"column:data_reserva" json:"data_reserva,omitempty"`
	AcceptedAt  *time.Time `gorm:"column:data_aceita" json:"data_aceita,omitempty"`
	DeliveredAt *time.Time `gorm:"column:data_entrega" json:"data_entrega,omitempty"`
	CancelledAt *time.Time `gorm:"column:data_cancelamento" json:"data_cancelamento,omitempty"`
}

func (Donation) TableName() string { return "donations" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Status        Status
	CategoryID    snowflake.ID
	DonorID       string
	BeneficiaryID string
	Cursor        *Cursor
	Limit         int
}
