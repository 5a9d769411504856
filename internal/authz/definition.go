package authz

import (
	"context"
	"fmt"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
)

// Policy kinds accepted in configuration.
const (
	KindRole       = "role"
	KindExpression = "expression"
	KindRego       = "rego"
	KindCasbin     = "casbin"
)

// Definition is a policy as written in the config file.
type Definition struct {
	Name            string   `mapstructure:"name" yaml:"name"`
	Kind            string   `mapstructure:"kind" yaml:"kind"`
	Role            string   `mapstructure:"role" yaml:"role"`
	CaseInsensitive bool     `mapstructure:"case_insensitive" yaml:"case_insensitive"`
	Expression      string   `mapstructure:"expression" yaml:"expression"`
	Rego            string   `mapstructure:"rego" yaml:"rego"`
	Query           string   `mapstructure:"query" yaml:"query"`
	Object          string   `mapstructure:"object" yaml:"object"`
	Action          string   `mapstructure:"action" yaml:"action"`
	Rules           []string `mapstructure:"rules" yaml:"rules"`
}

// Compile turns a definition into a Policy.
func (d Definition) Compile(ctx context.Context) (Policy, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: policy name is required", auth.ErrConfiguration)
	}
	switch d.Kind {
	case KindRole:
		if d.Role == "" {
			return nil, fmt.Errorf("%w: policy %q: role is required", auth.ErrConfiguration, d.Name)
		}
		return &RolePolicy{PolicyName: d.Name, Role: d.Role, CaseInsensitive: d.CaseInsensitive}, nil
	case KindExpression:
		return NewExprPolicy(d.Name, d.Expression)
	case KindRego:
		return NewRegoPolicy(ctx, d.Name, d.Rego, d.Query)
	case KindCasbin:
		return NewCasbinPolicy(d.Name, d.Object, d.Action, d.Rules)
	default:
		return nil, fmt.Errorf("%w: policy %q: unknown kind %q", auth.ErrConfiguration, d.Name, d.Kind)
	}
}

// BuildRegistry compiles defs and registers them after the builtins.
func BuildRegistry(ctx context.Context, defs []Definition) (*Registry, error) {
	policies := make([]Policy, 0, len(defs))
	for _, d := range defs {
		p, err := d.Compile(ctx)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return NewRegistry(policies...)
}
