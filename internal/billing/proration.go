package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/construplaza/construplaza-backend/internal/plans"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	"github.com/construplaza/construplaza-backend/pkg/errors"
)

// Nominal cycle lengths in days used to price the remainder of a new period.
const (
	NominalMonthlyDays = 30
	NominalAnnualDays  = 365
)

// ProrationInput is everything the calculator needs. Now is the reference
// instant; callers inject it so results are reproducible.
type ProrationInput struct {
	CurrentTier  enums.PlanTier
	CurrentCycle enums.BillingCycle
	PeriodStart  time.Time
	PeriodEnd    time.Time
	NewTier      enums.PlanTier
	NewCycle     enums.BillingCycle
	Now          time.Time
}

// Proration is the cost/credit breakdown of a mid-period plan change. All
// amounts are DOP rounded to 2 decimal places at output only.
type Proration struct {
	DaysRemaining   int64           `json:"daysRemaining"`
	PeriodLength    int64           `json:"periodLength"`
	CreditAmount    decimal.Decimal `json:"creditAmount"`
	CostOfRemainder decimal.Decimal `json:"costOfRemainder"`
	AmountToPay     decimal.Decimal `json:"amountToPay"`
	IsUpgrade       bool            `json:"isUpgrade"`
}

// NominalCycleDays returns the nominal length of a billing cycle.
func NominalCycleDays(cycle enums.BillingCycle) int64 {
	if cycle == enums.BillingCycleAnnual {
		return NominalAnnualDays
	}
	return NominalMonthlyDays
}

// CalculateProration computes the charge for switching plan or cycle
// mid-period. The unused value of the current period is credited against the
// prorated cost of the new plan; a negative balance is floored at zero, not
// paid out.
func CalculateProration(input ProrationInput) (Proration, error) {
	if input.CurrentTier == input.NewTier && input.CurrentCycle == input.NewCycle {
		return Proration{}, errors.New(errors.CodeStateConflict, "requested plan and cycle match the current subscription")
	}
	if !input.PeriodEnd.After(input.PeriodStart) {
		return Proration{}, errors.New(errors.CodeValidation, "period end must be after period start")
	}

	currentPrice, err := plans.Price(input.CurrentTier, input.CurrentCycle)
	if err != nil {
		return Proration{}, err
	}
	newPrice, err := plans.Price(input.NewTier, input.NewCycle)
	if err != nil {
		return Proration{}, err
	}

	periodLength := wholeDays(input.PeriodStart, input.PeriodEnd)
	if periodLength <= 0 {
		return Proration{}, errors.New(errors.CodeValidation, "current period is shorter than one day")
	}

	daysRemaining := wholeDays(input.Now, input.PeriodEnd)
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	result := Proration{
		DaysRemaining: daysRemaining,
		PeriodLength:  periodLength,
		IsUpgrade:     newPrice.GreaterThanOrEqual(currentPrice),
	}

	if daysRemaining == 0 {
		// Period already consumed: no credit, next period at full price.
		result.CreditAmount = decimal.Zero.Round(2)
		result.CostOfRemainder = newPrice.Round(2)
		result.AmountToPay = newPrice.Round(2)
		return result, nil
	}

	days := decimal.NewFromInt(daysRemaining)
	// rates stay unrounded until the end
	dailyRateOld := currentPrice.Div(decimal.NewFromInt(periodLength))
	dailyRateNew := newPrice.Div(decimal.NewFromInt(NominalCycleDays(input.NewCycle)))

	credit := dailyRateOld.Mul(days)
	cost := dailyRateNew.Mul(days)
	toPay := cost.Sub(credit)
	if toPay.IsNegative() {
		toPay = decimal.Zero
	}

	result.CreditAmount = credit.Round(2)
	result.CostOfRemainder = cost.Round(2)
	result.AmountToPay = toPay.Round(2)
	return result, nil
}

// wholeDays floors the span between two instants to whole days.
func wholeDays(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}
