package models

// Plan is a subscription tier governing query quota and model quality.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanStandard   Plan = "standard"
	PlanEnterprise Plan = "enterprise"
)

// ModelTier selects which class of language model serves a request.
type ModelTier string

const (
	TierEconomy ModelTier = "economy"
	TierPremium ModelTier = "premium"
)

// UnlimitedQueries marks a plan with no monthly query ceiling.
const UnlimitedQueries = -1

// PlanPolicy is everything the system needs to know about a plan.
// Adding a plan is a table edit here; no call site hard-codes tiers or limits.
type PlanPolicy struct {
	QueryLimit int
	ModelTier  ModelTier
	Price      string
	Features   []string
}

var planTable = map[Plan]PlanPolicy{
	PlanBasic: {
		QueryLimit: 500,
		ModelTier:  TierEconomy,
		Price:      "$499/mo",
		Features:   []string{"PDF Q&A"},
	},
	PlanStandard: {
		QueryLimit: 2000,
		ModelTier:  TierPremium,
		Price:      "$1499/mo",
		Features:   []string{"PDF Q&A", "Form Scraping"},
	},
	PlanEnterprise: {
		QueryLimit: UnlimitedQueries,
		ModelTier:  TierPremium,
		Price:      "$2999+/mo",
		Features:   []string{"All Features"},
	},
}

// PolicyFor looks up the policy for a plan.
func PolicyFor(p Plan) (PlanPolicy, bool) {
	policy, ok := planTable[p]
	return policy, ok
}

// Unlimited reports whether the policy has no query ceiling.
func (p PlanPolicy) Unlimited() bool {
	return p.QueryLimit == UnlimitedQueries
}

// ValidPlan reports whether p names a known plan.
func ValidPlan(p Plan) bool {
	_, ok := planTable[p]
	return ok
}
