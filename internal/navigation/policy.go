// Package navigation decides what happens to outbound load requests inside
// the embedded surface: web URLs load normally, everything else is cancelled
// and handed to the OS-level external link dispatcher (for routing to
// third-party payment apps).
package navigation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Knetic/govaluate"
)

// Decision is the outcome of evaluating a load request.
type Decision int

const (
	// Load lets the surface load the URL normally.
	Load Decision = iota
	// Dispatch cancels the load and routes the URL to the external opener.
	Dispatch
)

// Rule pairs a name with a govaluate expression over the requested URL.
// Expressions see the parameters: scheme, host, is_blank.
type Rule struct {
	Name       string
	Expression string
}

// DefaultRules permit web schemes and the blank placeholder page. Everything
// else is dispatched externally.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "web-schemes", Expression: `scheme == "http" || scheme == "https"`},
		{Name: "blank-page", Expression: `is_blank`},
	}
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// Policy decides whether the surface may load a URL or whether it must be
// handed to the external link dispatcher.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles the given rules. A nil or empty slice selects
// DefaultRules.
func NewPolicy(rules []Rule) (*Policy, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("navigation: compile rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, expr: expr})
	}
	return &Policy{rules: compiled}, nil
}

// Decide evaluates rules in order; the first rule that evaluates to true
// permits the load and its name is returned. URLs no rule claims are
// dispatched externally.
func (p *Policy) Decide(u *url.URL) (Decision, string) {
	params := map[string]interface{}{
		"scheme":   strings.ToLower(u.Scheme),
		"host":     u.Host,
		"is_blank": strings.ToLower(u.Scheme) == "about" && u.Opaque == "blank",
	}
	for _, r := range p.rules {
		out, err := r.expr.Evaluate(params)
		if err != nil {
			// A rule that cannot be evaluated never claims a URL.
			continue
		}
		if allowed, ok := out.(bool); ok && allowed {
			return Load, r.name
		}
	}
	return Dispatch, ""
}
