package recovery

import (
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/shopspring/decimal"
)

// DemandInput is everything the demand calculation needs for one member at
// one meeting. It is assembled by the Manager from the group, member, loan
// and history lookups.
type DemandInput struct {
	MonthlyInstallment float64
	TwoMeetings        bool
	OverdueInterest    float64
	SavingQuota        float64
	FDSnapshot         float64
	Paid               models.Amounts
	Prior              PriorEntry
	Balances           Balances
}

// Calculate computes the loan, interest, saving and fd demand lines.
//
// Loan and interest carry the previous meeting's unpaid demand forward.
// Saving does too, except when the previous meeting was overpaid: the
// excess is not banked against later demand, so nothing carries. FD has no
// demand; its balances are the member's FD snapshot plus today's deposit.
func Calculate(in DemandInput) models.DemandDetails {
	var prev models.DemandDetails
	if in.Prior.Found {
		prev = in.Prior.Entry.DemandDetails
	}

	installment := money.D(in.MonthlyInstallment)
	if in.TwoMeetings {
		installment = installment.Div(decimal.NewFromInt(2))
	}

	savingPrev := money.D(prev.Saving.UnpaidDemand)
	if in.Prior.Found && money.D(prev.Saving.ActualPaid).GreaterThan(money.D(prev.Saving.TotalDemand)) {
		savingPrev = decimal.Zero
	}

	fdOpening := money.D(in.FDSnapshot)
	fdPaid := money.D(in.Paid.FD)

	return models.DemandDetails{
		Loan: line(money.D(prev.Loan.UnpaidDemand), installment,
			money.D(in.Paid.Loan), money.D(in.Balances.Loan)),
		Interest: line(money.D(prev.Interest.UnpaidDemand), money.D(in.OverdueInterest),
			money.D(in.Paid.Interest), money.D(in.Balances.Interest)),
		Saving: line(savingPrev, money.D(in.SavingQuota),
			money.D(in.Paid.Saving), money.D(in.Balances.Saving)),
		FD: models.DemandLine{
			ActualPaid:     money.F(fdPaid),
			OpeningBalance: money.F(fdOpening),
			ClosingBalance: money.F(fdOpening.Add(fdPaid)),
		},
	}
}

func line(prev, curr, paid, opening decimal.Decimal) models.DemandLine {
	total := prev.Add(curr)
	return models.DemandLine{
		PrevDemand:     money.F(prev),
		CurrDemand:     money.F(curr),
		TotalDemand:    money.F(total),
		ActualPaid:     money.F(paid),
		UnpaidDemand:   money.F(money.NonNegative(total.Sub(paid))),
		OpeningBalance: money.F(opening),
		ClosingBalance: money.F(opening.Add(paid)),
	}
}

// MonthlyInstallment resolves the member's monthly loan installment. A live
// loan record wins over the member's embedded snapshot; a stored installment
// wins over amount / time period.
func MonthlyInstallment(active *models.Loan, snap models.LoanDetails) float64 {
	if active != nil {
		if v := installmentOf(active.Installment, active.Amount, active.TimePeriod); v > 0 {
			return v
		}
	}
	return installmentOf(snap.InstallmentAmount, snap.Amount, snap.TimePeriod)
}

func installmentOf(installment, amount float64, months int) float64 {
	if installment > 0 {
		return installment
	}
	if amount > 0 && months > 0 {
		return money.F(money.D(amount).Div(decimal.NewFromInt(int64(months))))
	}
	return 0
}

// SavingQuota returns the member's legacy quota when set, else the group's.
func SavingQuota(g models.Group, m models.Member) float64 {
	if m.SavingQuotaSnapshot != nil && *m.SavingQuotaSnapshot > 0 {
		return *m.SavingQuotaSnapshot
	}
	return g.SavingPerMember
}

// InterestDemand is the member's current interest demand. It is the stored
// overdue interest, read as-is rather than accrued from the outstanding
// principal; the loan snapshot's value is used when the member field is unset.
func InterestDemand(m models.Member) float64 {
	if m.OverdueInterest > 0 {
		return m.OverdueInterest
	}
	return m.LoanDetails.OverdueInterest
}
