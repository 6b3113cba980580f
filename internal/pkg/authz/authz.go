package authz

import (
	"context"
	"strings"

	"github.com/commune-app/commune/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Decision is the outcome of a policy check.
type Decision int

const (
	// Unconfigured means the policy could not be evaluated. Callers treat
	// it as a server error, never as a plain denial.
	Unconfigured Decision = iota
	Denied
	Authorized
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unconfigured"
	}
}

// RoleStore resolves a user's role.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

// Policy grants access to users holding at least the required role.
type Policy struct {
	store    RoleStore
	required string
}

func NewPolicy(store RoleStore, required string) *Policy {
	return &Policy{store: store, required: models.NormalizeRole(required)}
}

func NewAdminPolicy(store RoleStore) *Policy {
	return NewPolicy(store, models.RoleAdmin)
}

func (p *Policy) Check(ctx context.Context, userID string) Decision {
	if p == nil || p.store == nil {
		return Unconfigured
	}
	if strings.TrimSpace(userID) == "" {
		return Denied
	}
	role, err := p.store.GetRole(ctx, userID)
	if err != nil {
		fiberlog.Errorf("[Authz] role lookup for %s failed: %v", userID, err)
		return Unconfigured
	}
	if Satisfies(role, p.required) {
		return Authorized
	}
	return Denied
}

var roleRank = map[string]int{
	models.RoleMember:  0,
	models.RolePremium: 1,
	models.RoleAdmin:   2,
}

// Satisfies reports whether role meets required; admin satisfies every role.
func Satisfies(role, required string) bool {
	return roleRank[models.NormalizeRole(role)] >= roleRank[models.NormalizeRole(required)]
}
