package enums

import "fmt"

// RuleTarget maps to the rule_target enum in Postgres. It declares which part
// of a pricing context the rule applies to.
type RuleTarget string

const (
	TargetGlobal   RuleTarget = "global"
	TargetSupplier RuleTarget = "supplier"
	TargetBrand    RuleTarget = "brand"
	TargetCategory RuleTarget = "category"
	TargetFamily   RuleTarget = "family"
)

var validRuleTargets = []RuleTarget{
	TargetGlobal,
	TargetSupplier,
	TargetBrand,
	TargetCategory,
	TargetFamily,
}

// IsValid reports whether the value matches the canonical rule_target enum.
func (t RuleTarget) IsValid() bool {
	for _, candidate := range validRuleTargets {
		if candidate == t {
			return true
		}
	}
	return false
}

func (t RuleTarget) String() string { return string(t) }

// ParseRuleTarget converts raw input into RuleTarget.
func ParseRuleTarget(value string) (RuleTarget, error) {
	for _, candidate := range validRuleTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule target %q", value)
}

// MarkupType maps to the markup_type enum in Postgres.
type MarkupType string

const (
	MarkupPercentage MarkupType = "percentage"
	MarkupFixed      MarkupType = "fixed"
)

// IsValid reports whether the value matches the canonical markup_type enum.
func (m MarkupType) IsValid() bool {
	return m == MarkupPercentage || m == MarkupFixed
}

func (m MarkupType) String() string { return string(m) }

// RoundingStrategy maps to the rounding_strategy enum in Postgres.
type RoundingStrategy string

const (
	RoundNone    RoundingStrategy = "none"
	RoundUp10    RoundingStrategy = "up_10"
	RoundUp100   RoundingStrategy = "up_100"
	RoundDown100 RoundingStrategy = "down_100"
)

var validRoundingStrategies = []RoundingStrategy{
	RoundNone,
	RoundUp10,
	RoundUp100,
	RoundDown100,
}

// IsValid reports whether the value matches the canonical rounding_strategy enum.
func (r RoundingStrategy) IsValid() bool {
	for _, candidate := range validRoundingStrategies {
		if candidate == r {
			return true
		}
	}
	return false
}

func (r RoundingStrategy) String() string { return string(r) }
