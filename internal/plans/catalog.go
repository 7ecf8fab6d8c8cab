package plans

import (
	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
)

// Limits caps what a supplier on a given tier can publish. -1 means unlimited.
type Limits struct {
	MaxProducts       int `json:"maxProducts"`
	MaxQuotesPerMonth int `json:"maxQuotesPerMonth"`
	MaxSpecialties    int `json:"maxSpecialties"`
	MaxPhotos         int `json:"maxPhotos"`
}

// Unlimited is the sentinel for limits without a cap.
const Unlimited = -1

// Plan is one catalog entry. Prices are DOP, ITBIS inclusive.
type Plan struct {
	Tier         enums.PlanTier  `json:"tier"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice"`
	AnnualPrice  decimal.Decimal `json:"annualPrice"`
	Limits       Limits          `json:"limits"`
}

var catalog = map[enums.PlanTier]Plan{
	enums.PlanTierBasic: {
		Tier:         enums.PlanTierBasic,
		MonthlyPrice: decimal.NewFromInt(1000),
		AnnualPrice:  decimal.NewFromInt(9600),
		Limits: Limits{
			MaxProducts:       25,
			MaxQuotesPerMonth: 10,
			MaxSpecialties:    3,
			MaxPhotos:         10,
		},
	},
	enums.PlanTierProfessional: {
		Tier:         enums.PlanTierProfessional,
		MonthlyPrice: decimal.NewFromInt(2500),
		AnnualPrice:  decimal.NewFromInt(24000),
		Limits: Limits{
			MaxProducts:       100,
			MaxQuotesPerMonth: 50,
			MaxSpecialties:    8,
			MaxPhotos:         40,
		},
	},
	enums.PlanTierEnterprise: {
		Tier:         enums.PlanTierEnterprise,
		MonthlyPrice: decimal.NewFromInt(5000),
		AnnualPrice:  decimal.NewFromInt(48000),
		Limits: Limits{
			MaxProducts:       Unlimited,
			MaxQuotesPerMonth: Unlimited,
			MaxSpecialties:    Unlimited,
			MaxPhotos:         Unlimited,
		},
	},
}

// Lookup returns the catalog entry for a tier.
func Lookup(tier enums.PlanTier) (Plan, error) {
	plan, ok := catalog[tier]
	if !ok {
		return Plan{}, errors.New(errors.CodeNotFound, "unknown plan tier").
			WithDetails(map[string]any{"tier": tier.String()})
	}
	return plan, nil
}

// Price returns the charge for a tier on a billing cycle.
func Price(tier enums.PlanTier, cycle enums.BillingCycle) (decimal.Decimal, error) {
	plan, err := Lookup(tier)
	if err != nil {
		return decimal.Zero, err
	}
	switch cycle {
	case enums.BillingCycleMonthly:
		return plan.MonthlyPrice, nil
	case enums.BillingCycleAnnual:
		return plan.AnnualPrice, nil
	default:
		return decimal.Zero, errors.New(errors.CodeValidation, "unknown billing cycle").
			WithDetails(map[string]any{"cycle": cycle.String()})
	}
}

// PlanLimits returns the limits for a tier.
func PlanLimits(tier enums.PlanTier) (Limits, error) {
	plan, err := Lookup(tier)
	if err != nil {
		return Limits{}, err
	}
	return plan.Limits, nil
}

// All lists the catalog ordered basic, professional, enterprise.
func All() []Plan {
	return []Plan{
		catalog[enums.PlanTierBasic],
		catalog[enums.PlanTierProfessional],
		catalog[enums.PlanTierEnterprise],
	}
}
