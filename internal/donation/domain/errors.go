package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("donation_not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrConflict          = errors.New("conflict")
	ErrInfrastructure    = errors.New("infrastructure_error")
	ErrAuditDeferred     = errors.New("audit_deferred")
)

// Validation sentinels.
var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidAction          = errors.New("invalid_action")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrInvalidCategory        = errors.New("invalid_category")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidUnit            = errors.New("invalid_unit")
	ErrInvalidDeliveryMode    = errors.New("invalid_delivery_mode")
	ErrMissingPickupAddress   = errors.New("missing_pickup_address")
	ErrMissingDropoffAddress  = errors.New("missing_dropoff_address")
	ErrInvalidBeneficiary     = errors.New("invalid_beneficiary")
	ErrInvalidBeneficiaryType = errors.New("invalid_beneficiary_type")
	ErrInvalidPeopleImpacted  = errors.New("invalid_people_impacted")
	ErrMissingLocality        = errors.New("missing_locality")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
	ErrInvalidDonation        = errors.New("invalid_donation")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidationError reports whether the caller must change the input before retrying.
func IsValidationError(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// TransitionError is returned when the table has no edge for the request.
type TransitionError struct {
	Current   Status
	Requested Status
	Action    Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: cannot %s a donation in status %s (requested %s)", e.Action, e.Current, e.Requested)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InfrastructureError marks a failure the caller may retry with backoff.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func (e *InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

func NewInfrastructureError(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}
