package authz

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

//go:embed model.conf
var casbinModelContent string

// CasbinPolicy grants (object, action) to roles. A principal is allowed when
// any of its roles is permitted.
type CasbinPolicy struct {
	name     string
	object   string
	action   string
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinPolicy builds an enforcer from rules of the form
// "role, object, action".
func NewCasbinPolicy(name, object, action string, rules []string) (*CasbinPolicy, error) {
	if object == "" || action == "" {
		return nil, fmt.Errorf("%w: policy %q: object and action are required", auth.ErrConfiguration, name)
	}
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("%w: policy %q: %v", auth.ErrConfiguration, name, err)
	}

	policies := make([][]string, 0, len(rules))
	for _, rule := range rules {
		parts := strings.Split(rule, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: policy %q: rule %q must be \"role, object, action\"",
				auth.ErrConfiguration, name, rule)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		policies = append(policies, parts)
	}
	if len(policies) > 0 {
		if _, err := enforcer.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("%w: policy %q: %v", auth.ErrConfiguration, name, err)
		}
	}
	return &CasbinPolicy{name: name, object: object, action: action, enforcer: enforcer}, nil
}

func (c *CasbinPolicy) Name() string { return c.name }

func (c *CasbinPolicy) Evaluate(_ context.Context, p claims.Principal) (bool, error) {
	for _, role := range p.Roles {
		ok, err := c.enforcer.Enforce(role, c.object, c.action)
		if err != nil {
			return false, fmt.Errorf("%w: policy %q: %v", auth.ErrPolicyEvaluation, c.name, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
