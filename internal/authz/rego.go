package authz

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"github.com/ArashRezazadeh/DataAnnotations/internal/auth"
	"github.com/ArashRezazadeh/DataAnnotations/internal/claims"
)

// DefaultRegoQuery is used when a rego policy names no query.
const DefaultRegoQuery = "data.authd.allow"

// impureBuiltins are removed from the compiler capabilities so rego policies
// stay side-effect free.
var impureBuiltins = map[string]struct{}{
	"http.send":          {},
	"net.lookup_ip_addr": {},
	"opa.runtime":        {},
	"rand.intn":          {},
	"time.now_ns":        {},
	"uuid.rfc4122":       {},
	"trace":              {},
}

func pureCapabilities() *ast.Capabilities {
	caps := ast.CapabilitiesForThisVersion()
	kept := caps.Builtins[:0]
	for _, b := range caps.Builtins {
		if _, impure := impureBuiltins[b.Name]; impure {
			continue
		}
		kept = append(kept, b)
	}
	caps.Builtins = kept
	return caps
}

// RegoPolicy evaluates a prepared OPA query with the principal as input. The
// query must produce a boolean; an undefined result is a deny.
type RegoPolicy struct {
	name  string
	query rego.PreparedEvalQuery
}

// NewRegoPolicy compiles module and prepares query. Compile errors, including
// use of impure builtins, are configuration errors.
func NewRegoPolicy(ctx context.Context, name, module, query string) (*RegoPolicy, error) {
	if module == "" {
		return nil, fmt.Errorf("%w: policy %q: rego module is required", auth.ErrConfiguration, name)
	}
	if query == "" {
		query = DefaultRegoQuery
	}
	r := rego.New(
		rego.Query(query),
		rego.Module(name+".rego", module),
		rego.Capabilities(pureCapabilities()),
		rego.StrictBuiltinErrors(true),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: policy %q: %v", auth.ErrConfiguration, name, err)
	}
	return &RegoPolicy{name: name, query: prepared}, nil
}

func (r *RegoPolicy) Name() string { return r.name }

func (r *RegoPolicy) Evaluate(ctx context.Context, p claims.Principal) (bool, error) {
	results, err := r.query.Eval(ctx, rego.EvalInput(principalDocument(p)))
	if err != nil {
		return false, fmt.Errorf("%w: policy %q: %v", auth.ErrPolicyEvaluation, r.name, err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: policy %q: result is %T, not a boolean",
			auth.ErrPolicyEvaluation, r.name, results[0].Expressions[0].Value)
	}
	return allowed, nil
}
