package navigation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestDefaultPolicyPermitsWebSchemes(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	cases := []string{
		"https://api.widget.example/v1/payments",
		"http://bank.example/3ds",
		"HTTPS://UPPER.example/path",
	}
	for _, raw := range cases {
		decision, rule := p.Decide(mustParse(t, raw))
		assert.Equal(t, Load, decision, raw)
		assert.Equal(t, "web-schemes", rule, raw)
	}
}

func TestDefaultPolicyPermitsBlankPage(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	decision, rule := p.Decide(mustParse(t, "about:blank"))
	assert.Equal(t, Load, decision)
	assert.Equal(t, "blank-page", rule)
}

func TestDefaultPolicyDispatchesEverythingElse(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	cases := []string{
		"upi://pay?pa=merchant@bank&am=500",
		"tez://upi/pay",
		"phonepe://pay",
		"intent://pay#Intent;scheme=upi;end",
		"mailto:support@example.com",
		"about:config",
	}
	for _, raw := range cases {
		decision, _ := p.Decide(mustParse(t, raw))
		assert.Equal(t, Dispatch, decision, raw)
	}
}

func TestCustomRuleFirstMatchWins(t *testing.T) {
	p, err := NewPolicy([]Rule{
		{Name: "trusted-host", Expression: `host == "trusted.example"`},
		{Name: "web-schemes", Expression: `scheme == "https"`},
	})
	require.NoError(t, err)

	decision, rule := p.Decide(mustParse(t, "https://trusted.example/page"))
	assert.Equal(t, Load, decision)
	assert.Equal(t, "trusted-host", rule)

	decision, rule = p.Decide(mustParse(t, "https://other.example/page"))
	assert.Equal(t, Load, decision)
	assert.Equal(t, "web-schemes", rule)
}

func TestInvalidRuleExpressionFailsConstruction(t *testing.T) {
	_, err := NewPolicy([]Rule{{Name: "broken", Expression: `scheme == `}})
	assert.Error(t, err)
}
