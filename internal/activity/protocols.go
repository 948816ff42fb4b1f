package activity

import (
	"strings"
	"unicode"
)

// ProtocolRule maps a label pattern to a canonical protocol name.
type ProtocolRule struct {
	Pattern  string
	Protocol string
	// Exact restricts the rule to whole-label or whole-word matches.
	// Used for short ticker symbols that are common word prefixes.
	Exact bool
}

// DefaultProtocolRules is the built-in lookup table.
var DefaultProtocolRules = []ProtocolRule{
	{Pattern: "uniswap", Protocol: "uniswap"},
	{Pattern: "uni", Exact: true, Protocol: "uniswap"},
	{Pattern: "aave", Protocol: "aave"},
	{Pattern: "curve", Protocol: "curve"},
	{Pattern: "crv", Exact: true, Protocol: "curve"},
	{Pattern: "compound", Protocol: "compound"},
	{Pattern: "comp", Exact: true, Protocol: "compound"},
	{Pattern: "lido", Protocol: "lido"},
	{Pattern: "steth", Exact: true, Protocol: "lido"},
	{Pattern: "1inch", Protocol: "1inch"},
	{Pattern: "sushiswap", Protocol: "sushiswap"},
	{Pattern: "sushi", Exact: true, Protocol: "sushiswap"},
	{Pattern: "balancer", Protocol: "balancer"},
	{Pattern: "stargate", Protocol: "stargate"},
	{Pattern: "layerzero", Protocol: "layerzero"},
	{Pattern: "zora", Protocol: "zora"},
	{Pattern: "opensea", Protocol: "opensea"},
	{Pattern: "seaport", Protocol: "opensea"},
	{Pattern: "blur", Protocol: "blur"},
	{Pattern: "hop", Exact: true, Protocol: "hop"},
	{Pattern: "across", Protocol: "across"},
	{Pattern: "pancakeswap", Protocol: "pancakeswap"},
	{Pattern: "cake", Exact: true, Protocol: "pancakeswap"},
	{Pattern: "gmx", Protocol: "gmx"},
	{Pattern: "maker", Protocol: "maker"},
	{Pattern: "eigenlayer", Protocol: "eigenlayer"},
	{Pattern: "pendle", Protocol: "pendle"},
}

// ProtocolMatcher attributes contract labels to protocols.
// A label matches a rule when the label, or one of its words, equals the
// pattern, or (for non-exact rules) starts with it. Substrings in the middle
// of a word never match: "Uniswap V3: Router" matches "uniswap", while
// "Unicorn Pass" does not match the exact "uni" rule.
type ProtocolMatcher struct {
	rules []ProtocolRule
}

// NewProtocolMatcher creates a matcher over rules. Patterns are lower-cased;
// empty patterns are dropped. Rules are tried in order.
func NewProtocolMatcher(rules []ProtocolRule) *ProtocolMatcher {
	cleaned := make([]ProtocolRule, 0, len(rules))
	for _, r := range rules {
		pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
		if pattern == "" || r.Protocol == "" {
			continue
		}
		cleaned = append(cleaned, ProtocolRule{Pattern: pattern, Protocol: strings.ToLower(r.Protocol), Exact: r.Exact})
	}
	return &ProtocolMatcher{rules: cleaned}
}

// Match returns the protocol for label, or "" if no rule matches.
func (m *ProtocolMatcher) Match(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return ""
	}
	words := splitWords(label)
	for _, r := range m.rules {
		if r.matches(label) {
			return r.Protocol
		}
		for _, w := range words {
			if r.matches(w) {
				return r.Protocol
			}
		}
	}
	return ""
}

func (r ProtocolRule) matches(s string) bool {
	if r.Exact {
		return s == r.Pattern
	}
	return strings.HasPrefix(s, r.Pattern)
}

// splitWords splits on whitespace and common label separators.
func splitWords(label string) []string {
	return strings.FieldsFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ':' || r == '/'
	})
}
