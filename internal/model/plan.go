package model

import (
	"fmt"
	"strings"
)

type PlanTier string

const (
	TierFree       PlanTier = "Free"
	TierPro        PlanTier = "Pro"
	TierEnterprise PlanTier = "Enterprise"
)

// Limits are the per-cycle ceilings a plan grants.
type Limits struct {
	Messages int
	Chatbots int
}

// Plan is one of Free, Pro or Enterprise. Only Enterprise carries custom limits;
// the fixed tiers always report their catalogue limits.
type Plan struct {
	tier   PlanTier
	custom Limits
}

var (
	freeLimits = Limits{Messages: 1000, Chatbots: 1}
	proLimits  = Limits{Messages: 50000, Chatbots: 10}
)

func FreePlan() Plan {
	return Plan{tier: TierFree}
}

func ProPlan() Plan {
	return Plan{tier: TierPro}
}

func EnterprisePlan(limits Limits) Plan {
	return Plan{tier: TierEnterprise, custom: limits}
}

func (p Plan) Tier() PlanTier {
	if p.tier == "" {
		return TierFree
	}
	return p.tier
}

func (p Plan) Limits() Limits {
	switch p.Tier() {
	case TierPro:
		return proLimits
	case TierEnterprise:
		return p.custom
	default:
		return freeLimits
	}
}

func (p Plan) String() string {
	return string(p.Tier())
}

// ParsePlan builds the plan variant from a tier name. limits are only consulted
// for Enterprise and must not be negative.
func ParsePlan(tier string, limits Limits) (Plan, error) {
	switch PlanTier(strings.TrimSpace(tier)) {
	case TierFree:
		return FreePlan(), nil
	case TierPro:
		return ProPlan(), nil
	case TierEnterprise:
		if limits.Messages < 0 || limits.Chatbots < 0 {
			return Plan{}, fmt.Errorf("plan: enterprise limits must not be negative")
		}
		return EnterprisePlan(limits), nil
	default:
		return Plan{}, fmt.Errorf("plan: unknown tier %q", tier)
	}
}

// ApplyPlan stores the plan tier and its limits on the tenant record.
func (t *TenantItem) ApplyPlan(p Plan) {
	limits := p.Limits()
	t.Plan = p.String()
	t.MessageLimit = limits.Messages
	t.ChatbotLimit = limits.Chatbots
}
