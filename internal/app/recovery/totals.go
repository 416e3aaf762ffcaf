package recovery

import (
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/shopspring/decimal"
)

// EntryTotal is the sum of every amount category on an entry.
func EntryTotal(a models.Amounts) float64 {
	sum := decimal.Zero
	for _, c := range models.Categories {
		sum = sum.Add(money.D(a.Get(c)))
	}
	return money.F(sum)
}

// Recompute rebuilds every entry total and the session totals from the
// entries. Stored totals are never trusted or patched incrementally.
func Recompute(rs *models.RecoverySession) {
	cash, online, all := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range rs.Recoveries {
		e := &rs.Recoveries[i]
		e.Total = EntryTotal(e.Amounts)
		if !e.Counted() {
			continue
		}
		t := money.D(e.Total)
		all = all.Add(t)
		if e.PaymentMode.Cash {
			cash = cash.Add(t)
		}
		if e.PaymentMode.Online {
			online = online.Add(t)
		}
	}
	rs.Totals = models.SessionTotals{
		TotalCash:   money.F(cash),
		TotalOnline: money.F(online),
		TotalAmount: money.F(all),
	}
}
