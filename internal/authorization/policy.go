package authorization

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var modelText string

// Action is a capability checked by the policy.
type Action string

const (
	ActionDonationCreate    Action = "donation.create"
	ActionDonationView      Action = "donation.view"
	ActionDonationClaim     Action = "donation.claim"
	ActionDonationAccept    Action = "donation.accept"
	ActionDonationCancel    Action = "donation.cancel"
	ActionDonationCancelOwn Action = "donation.cancel_own"
	ActionDonationDeliver   Action = "donation.deliver"
	ActionDonationDelete    Action = "donation.delete"

	ActionImpactView Action = "impact.view"

	ActionAuditLogView Action = "audit_log.view"

	ActionCategoryView   Action = "category.view"
	ActionCategoryCreate Action = "category.create"
)

// minimumRoles is the only place an action's required role is declared.
var minimumRoles = map[Action]Role{
	ActionDonationCreate:    RoleDonor,
	ActionDonationView:      RoleDonor,
	ActionDonationClaim:     RoleDonor,
	ActionDonationAccept:    RoleStaff,
	ActionDonationCancel:    RoleStaff,
	ActionDonationCancelOwn: RoleDonor,
	ActionDonationDeliver:   RoleStaff,
	ActionDonationDelete:    RoleAdmin,

	ActionImpactView: RoleVisitor,

	ActionAuditLogView: RoleStaff,

	ActionCategoryView:   RoleVisitor,
	ActionCategoryCreate: RoleStaff,
}

// Actions returns every known action sorted by name.
func Actions() []Action {
	out := make([]Action, 0, len(minimumRoles))
	for action := range minimumRoles {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MinimumRole returns the lowest role allowed to perform action.
func MinimumRole(action Action) (Role, bool) {
	role, ok := minimumRoles[action]
	return role, ok
}

// Object is the casbin object an action belongs to: the prefix before the dot.
func (a Action) Object() string {
	object, _, _ := strings.Cut(string(a), ".")
	return object
}

// Target is the resource state an ownership precondition is evaluated on.
type Target struct {
	// Status is the donation's canonical lifecycle status.
	Status string
	DonorID string
	// BeneficiaryID is the claimant requested by a claim.
	BeneficiaryID string
}

// openStatus is the only status in which a donor may withdraw their own donation.
const openStatus = "registered"

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

type Reason string

const (
	ReasonNone          Reason = ""
	ReasonRole          Reason = "role"
	ReasonOwnership     Reason = "ownership"
	ReasonUnknownAction Reason = "unknown_action"
)

// Decision is the typed result of a policy evaluation. Reason is for
// internal diagnostics only and must not be exposed to callers.
type Decision struct {
	Effect Effect
	Reason Reason
}

func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

func allow() Decision {
	return Decision{Effect: EffectAllow}
}

func deny(reason Reason) Decision {
	return Decision{Effect: EffectDeny, Reason: reason}
}

// Policy evaluates the role table. It is immutable after NewPolicy and safe
// for concurrent use.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return &Policy{enforcer: enforcer}, nil
}

// Decide is total over (role, action, target): unknown roles and actions deny.
func (p *Policy) Decide(subject Subject, action Action, target *Target) Decision {
	if !subject.Role.Valid() {
		return deny(ReasonRole)
	}
	if _, ok := minimumRoles[action]; !ok {
		return deny(ReasonUnknownAction)
	}

	switch action {
	case ActionDonationCancel:
		if p.enforce(subject.Role, ActionDonationCancel) {
			return allow()
		}
		if !p.enforce(subject.Role, ActionDonationCancelOwn) {
			return deny(ReasonRole)
		}
		if target == nil || subject.ID == "" || subject.ID != target.DonorID || target.Status != openStatus {
			return deny(ReasonOwnership)
		}
		return allow()
	case ActionDonationCancelOwn:
		return deny(ReasonUnknownAction)
	case ActionDonationClaim:
		if !p.enforce(subject.Role, action) {
			return deny(ReasonRole)
		}
		if target == nil {
			return deny(ReasonOwnership)
		}
		beneficiary := strings.TrimSpace(target.BeneficiaryID)
		if beneficiary == "" || beneficiary == target.DonorID {
			return deny(ReasonOwnership)
		}
		if !subject.Role.AtLeast(RoleStaff) && beneficiary != subject.ID {
			return deny(ReasonOwnership)
		}
		return allow()
	default:
		if !p.enforce(subject.Role, action) {
			return deny(ReasonRole)
		}
		return allow()
	}
}

// Allows is Decide for actions without ownership preconditions.
func (p *Policy) Allows(subject Subject, action Action) bool {
	return p.Decide(subject, action, nil).Allowed()
}

func (p *Policy) enforce(role Role, action Action) bool {
	allowed, err := p.enforcer.Enforce(subjectFor(role), action.Object(), string(action))
	if err != nil {
		return false
	}
	return allowed
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	// Each role inherits the one directly below it.
	for i := 1; i < len(roleOrder); i++ {
		if _, err := enforcer.AddGroupingPolicy(subjectFor(roleOrder[i]), subjectFor(roleOrder[i-1])); err != nil {
			return fmt.Errorf("seed role %s: %w", roleOrder[i], err)
		}
	}
	for _, action := range Actions() {
		role := minimumRoles[action]
		if _, err := enforcer.AddPolicy(subjectFor(role), action.Object(), string(action)); err != nil {
			return fmt.Errorf("seed action %s: %w", action, err)
		}
	}
	return nil
}
