package catalog

import (
	"fmt"
	"sort"
)

// AmountBand is one configured amount range. Bands are evaluated as closed
// intervals [Min, Max]; a nil Max means the band is unbounded above.
type AmountBand struct {
	Min         float64  `mapstructure:"min" json:"min"`
	Max         *float64 `mapstructure:"max" json:"max,omitempty"`
	Approvers   []string `mapstructure:"approvers" json:"approvers"`
	AutoApprove bool     `mapstructure:"auto_approve" json:"auto_approve"`
}

// Contains reports whether the amount falls inside the band.
func (b AmountBand) Contains(amount float64) bool {
	if amount < b.Min {
		return false
	}
	return b.Max == nil || amount <= *b.Max
}

// VariantRule keys approval requirements by a transaction sub-type.
type VariantRule struct {
	Approvers            []string `mapstructure:"approvers" json:"approvers"`
	RequiresVerification bool     `mapstructure:"requires_verification" json:"requires_verification"`
}

// Rule holds the approval requirements configured for one transaction type.
type Rule struct {
	Variants    map[string]VariantRule `mapstructure:"variants" json:"variants,omitempty"`
	AmountBands []AmountBand           `mapstructure:"amount_bands" json:"amount_bands,omitempty"`
}

// MatchBand returns the amount band containing the amount. At most one band
// can match; Validate enforces that invariant at load time.
func (r Rule) MatchBand(amount float64) (AmountBand, bool) {
	for _, band := range r.AmountBands {
		if band.Contains(amount) {
			return band, true
		}
	}
	return AmountBand{}, false
}

// Catalog is the static, versioned mapping from transaction type to approval
// requirements. It is loaded once at startup and never mutated by the engine.
type Catalog struct {
	Version          string          `mapstructure:"version" json:"version"`
	DefaultApprovers []string        `mapstructure:"default_approvers" json:"default_approvers"`
	OverrideRole     string          `mapstructure:"override_role" json:"override_role"`
	Rules            map[string]Rule `mapstructure:"rules" json:"rules"`
}

// Requirements is the resolved approval requirement for one transaction: the
// deduplicated union of variant-keyed and amount-band approvers.
type Requirements struct {
	Approvers            []string
	AutoApprove          bool
	RequiresVerification bool
}

// RuleFor returns the rule configured for a transaction type.
func (c *Catalog) RuleFor(transactionType string) (Rule, bool) {
	rule, ok := c.Rules[transactionType]
	return rule, ok
}

// RequiresVerification reports whether the transaction's declared variant
// requires supporting evidence.
func (c *Catalog) RequiresVerification(transactionType, variant string) bool {
	rule, ok := c.Rules[transactionType]
	if !ok || variant == "" {
		return false
	}
	return rule.Variants[variant].RequiresVerification
}

// Resolve combines the variant-keyed approver list and the matched amount
// band into a single requirement. Types with no configured rule fall back to
// the catalog default approver set. A missing amount simply contributes no
// amount-based approvers.
func (c *Catalog) Resolve(transactionType, variant string, amount *float64) Requirements {
	rule, ok := c.RuleFor(transactionType)
	if !ok {
		return Requirements{Approvers: append([]string{}, c.DefaultApprovers...)}
	}

	req := Requirements{}
	if variant != "" {
		if vr, ok := rule.Variants[variant]; ok {
			req.Approvers = append(req.Approvers, vr.Approvers...)
			req.RequiresVerification = vr.RequiresVerification
		}
	}
	if amount != nil {
		if band, ok := rule.MatchBand(*amount); ok {
			req.Approvers = append(req.Approvers, band.Approvers...)
			req.AutoApprove = band.AutoApprove
		}
	}
	req.Approvers = dedupe(req.Approvers)
	return req
}

// Validate checks structural invariants: per type, bands sorted by Min,
// non-overlapping as closed intervals, and unbounded only in the last band.
// Gaps are legal; an amount falling in a gap matches no band.
func (c *Catalog) Validate() error {
	if len(c.DefaultApprovers) == 0 {
		return fmt.Errorf("catalog default_approvers must not be empty")
	}
	for transactionType, rule := range c.Rules {
		bands := rule.AmountBands
		if !sort.SliceIsSorted(bands, func(i, j int) bool { return bands[i].Min < bands[j].Min }) {
			return fmt.Errorf("rule %q: amount bands must be sorted by min", transactionType)
		}
		for i, band := range bands {
			if band.Max != nil && *band.Max < band.Min {
				return fmt.Errorf("rule %q: band %d has max below min", transactionType, i)
			}
			if i == len(bands)-1 {
				continue
			}
			if band.Max == nil {
				return fmt.Errorf("rule %q: band %d is unbounded but not last", transactionType, i)
			}
			if bands[i+1].Min <= *band.Max {
				return fmt.Errorf("rule %q: bands %d and %d overlap", transactionType, i, i+1)
			}
		}
	}
	return nil
}

// dedupe removes duplicate roles while preserving first-seen order, so the
// configured priority of the approver chain survives the union.
func dedupe(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := roles[:0]
	for _, role := range roles {
		if seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	return out
}
