package domain

import (
	"strings"

	"github.com/smallbiznis/donare/internal/authorization"
)

type Action string

const (
	ActionClaim   Action = "claim"
	ActionAccept  Action = "accept"
	ActionCancel  Action = "cancel"
	ActionDeliver Action = "deliver"
)

type transition struct {
	from   []Status
	to     Status
	policy authorization.Action
	event  EventType
}

var transitions = map[Action]transition{
	ActionClaim: {
		from:   []Status{StatusRegistered},
		to:     StatusClaimed,
		policy: authorization.ActionDonationClaim,
		event:  EventClaimed,
	},
	ActionAccept: {
		from:   []Status{StatusRegistered, StatusClaimed},
		to:     StatusAccepted,
		policy: authorization.ActionDonationAccept,
		event:  EventAccepted,
	},
	ActionCancel: {
		from:   []Status{StatusRegistered, StatusClaimed, StatusAccepted},
		to:     StatusCancelled,
		policy: authorization.ActionDonationCancel,
		event:  EventCancelled,
	},
	ActionDeliver: {
		from:   []Status{StatusAccepted},
		to:     StatusDelivered,
		policy: authorization.ActionDonationDeliver,
		event:  EventDelivered,
	},
}

func Actions() []Action {
	return []Action{ActionClaim, ActionAccept, ActionCancel, ActionDeliver}
}

func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitions[action]; !ok {
		return "", ErrInvalidAction
	}
	return action, nil
}

// Target is the status the action moves a donation into.
func (a Action) Target() Status {
	return transitions[a].to
}

func (a Action) Policy() authorization.Action {
	return transitions[a].policy
}

func (a Action) Event() EventType {
	return transitions[a].event
}

// Allowed reports whether the table has an edge from the given status.
func (a Action) Allowed(from Status) bool {
	rule, ok := transitions[a]
	if !ok {
		return false
	}
	for _, candidate := range rule.from {
		if candidate == from {
			return true
		}
	}
	return false
}
