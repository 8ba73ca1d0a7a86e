package domain

import (
	"strings"
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusClaimed    Status = "claimed"
	StatusAccepted   Status = "accepted"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// legacyStatuses maps the vocabularies still present in older rows and
// clients onto the canonical set.
var legacyStatuses = map[string]Status{
	"cadastrada": StatusRegistered,
	"disponivel": StatusRegistered,
	"reservada":  StatusClaimed,
	"aceita":     StatusAccepted,
	"recebida":   StatusDelivered,
	"entregue":   StatusDelivered,
	"cancelada":  StatusCancelled,
}

// Statuses lists the canonical lifecycle states in lifecycle order.
func Statuses() []Status {
	return []Status{StatusRegistered, StatusClaimed, StatusAccepted, StatusDelivered, StatusCancelled}
}

// ParseStatus accepts canonical and legacy names, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	candidate := Status(value)
	if candidate.Valid() {
		return candidate, nil
	}
	if status, ok := legacyStatuses[value]; ok {
		return status, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusClaimed, StatusAccepted, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal states accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) String() string { return string(s) }
