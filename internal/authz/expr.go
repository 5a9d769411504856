package authz

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

const exprCacheSize = 256

// exprCache shares compiled evaluators between policies with the same
// expression text.
var exprCache, _ = lru.New[string, *bexpr.Evaluator](exprCacheSize)

func compileExpr(expression string) (*bexpr.Evaluator, error) {
	if ev, ok := exprCache.Get(expression); ok {
		return ev, nil
	}
	ev, err := bexpr.CreateEvaluator(expression)
	if err != nil {
		return nil, err
	}
	exprCache.Add(expression, ev)
	return ev, nil
}

// ExprPolicy evaluates a go-bexpr expression over the principal, e.g.
//
//	"Admin" in roles and name matches "^L"
//
// Fields: subject, name, roles, token_id.
type ExprPolicy struct {
	name       string
	expression string
	evaluator  *bexpr.Evaluator
}

// NewExprPolicy compiles expression. A syntax error is a configuration error.
func NewExprPolicy(name, expression string) (*ExprPolicy, error) {
	if expression == "" {
		return nil, fmt.Errorf("%w: policy %q: expression is required", auth.ErrConfiguration, name)
	}
	ev, err := compileExpr(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: policy %q: %v", auth.ErrConfiguration, name, err)
	}
	return &ExprPolicy{name: name, expression: expression, evaluator: ev}, nil
}

func (e *ExprPolicy) Name() string { return e.name }

func (e *ExprPolicy) Evaluate(_ context.Context, p claims.Principal) (bool, error) {
	ok, err := e.evaluator.Evaluate(principalDocument(p))
	if err != nil {
		return false, fmt.Errorf("%w: policy %q: %v", auth.ErrPolicyEvaluation, e.name, err)
	}
	return ok, nil
}

// principalDocument is the attribute view shared by expression and rego
// policies.
func principalDocument(p claims.Principal) map[string]any {
	roles := p.RoleList()
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		"subject":  p.Subject,
		"name":     p.DisplayName,
		"roles":    roles,
		"token_id": p.TokenID,
	}
}
