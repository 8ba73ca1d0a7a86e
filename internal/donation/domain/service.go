package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donare/internal/authorization"
	"github.com/smallbiznis/donare/pkg/db/pagination"
)

type CreateRequest struct {
	Title          string       `json:"titulo"`
	Description    string       `json:"descricao"`
	CategoryID     snowflake.ID `json:"categoria_id"`
	Quantity       int          `json:"quantidade"`
	Unit           string       `json:"unidade"`
	DeliveryMode   DeliveryMode `json:"tipo_entrega"`
	PickupAddress  string       `json:"endereco_coleta"`
	DropoffAddress string       `json:"endereco_entrega"`
	Location       string       `json:"localizacao"`
	Notes          string       `json:"observacoes"`
	DeliveryNotes  string       `json:"observacoes_entrega"`
}

// TransitionPayload carries the optional inputs of a lifecycle action. Only
// the fields relevant to the action are read.
type TransitionPayload struct {
	BeneficiaryID    string `json:"beneficiario_id"`
	Note             string `json:"observacoes"`
	BeneficiaryType  string `json:"tipo_beneficiario"`
	PeopleImpacted   *int   `json:"pessoas_impactadas"`
	DeliveryLocality string `json:"localidade_entrega"`
	ImpactNotes      string `json:"observacoes_impacto"`
}

type TransitionRequest struct {
	DonationID snowflake.ID
	Actor      authorization.Subject
	Action     string
	Payload    TransitionPayload
}

// TransitionResult reports the donation after the call. Applied is false when
// the donation was already in the requested state.
type TransitionResult struct {
	Donation *Donation `json:"donation"`
	Applied  bool      `json:"applied"`
	From     Status    `json:"from_status"`
	EventID  string    `json:"event_id,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	Status        string `form:"status"`
	CategoryID    string `form:"category_id"`
	DonorID       string `form:"donor_id"`
	BeneficiaryID string `form:"beneficiary_id"`
}

type ListResponse struct {
	pagination.PageInfo
	Donations []Donation `json:"donations"`
}

type Service interface {
	Create(ctx context.Context, actor authorization.Subject, req CreateRequest) (*Donation, error)
	Get(ctx context.Context, actor authorization.Subject, id snowflake.ID) (*Donation, error)
	List(ctx context.Context, actor authorization.Subject, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error)
	Delete(ctx context.Context, actor authorization.Subject, id snowflake.ID) error
}
