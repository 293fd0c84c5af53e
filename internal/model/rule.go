package model

import (
	"fmt"
	"strings"
)

// Rule is one targeting rule produced from a segment description. Values
// are opaque; the portal never evaluates them.
type Rule struct {
	ID        string `json:"id"`
	Field     string `json:"field"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
	LogicGate string `json:"logicGate,omitempty"`
}

// String renders the rule as "field operator value".
func (r Rule) String() string {
	return fmt.Sprintf("%s %s %v", r.Field, r.Operator, r.Value)
}

// RulesText joins rules for display in prompts.
func RulesText(rules []Rule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
