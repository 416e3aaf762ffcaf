// internal/domain/models/recovery.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session statuses. Sessions are created approved and stay mutable so that
// corrections remain possible.
const SessionApproved = "approved"

// Attendance values.
const (
	Present = "present"
	Absent  = "absent"
)

// Category names one amount slot on a recovery entry.
type Category string

const (
	CatSaving        Category = "saving"
	CatLoan          Category = "loan"
	CatFD            Category = "fd"
	CatInterest      Category = "interest"
	CatYogdan        Category = "yogdan"
	CatMemFeesSHG    Category = "mem_fees_shg"
	CatMemFeesSamiti Category = "mem_fees_samiti"
	CatPenalty       Category = "penalty"
	CatOther         Category = "other"
	CatOther2        Category = "other2"
)

// Categories lists every amount slot in display order.
var Categories = []Category{
	CatSaving, CatLoan, CatFD, CatInterest, CatYogdan,
	CatMemFeesSHG, CatMemFeesSamiti, CatPenalty, CatOther, CatOther2,
}

// Amounts is the fixed set of amounts collected from one member at one
// meeting. The legacy "other1" field is folded into Other when requests are
// decoded and is never stored.
type Amounts struct {
	Saving        float64 `bson:"saving" json:"saving"`
	Loan          float64 `bson:"loan" json:"loan"`
	FD            float64 `bson:"fd" json:"fd"`
	Interest      float64 `bson:"interest" json:"interest"`
	Yogdan        float64 `bson:"yogdan" json:"yogdan"`
	MemFeesSHG    float64 `bson:"mem_fees_shg" json:"mem_fees_shg"`
	MemFeesSamiti float64 `bson:"mem_fees_samiti" json:"mem_fees_samiti"`
	Penalty       float64 `bson:"penalty" json:"penalty"`
	Other         float64 `bson:"other" json:"other"`
	Other2        float64 `bson:"other2" json:"other2"`
}

// Get returns the amount stored for a category (0 for unknown categories).
func (a Amounts) Get(c Category) float64 {
	switch c {
	case CatSaving:
		return a.Saving
	case CatLoan:
		return a.Loan
	case CatFD:
		return a.FD
	case CatInterest:
		return a.Interest
	case CatYogdan:
		return a.Yogdan
	case CatMemFeesSHG:
		return a.MemFeesSHG
	case CatMemFeesSamiti:
		return a.MemFeesSamiti
	case CatPenalty:
		return a.Penalty
	case CatOther:
		return a.Other
	case CatOther2:
		return a.Other2
	}
	return 0
}

// PaymentMode records how an entry was paid. Both flags may be set.
type PaymentMode struct {
	Cash   bool `bson:"cash" json:"cash"`
	Online bool `bson:"online" json:"online"`
}

// DemandLine is the demand breakdown for one category. Opening and closing
// balances are cumulative amounts paid in (loan, interest) or held (saving,
// fd); they are not outstanding principal.
type DemandLine struct {
	PrevDemand     float64 `bson:"prev_demand" json:"prev_demand"`
	CurrDemand     float64 `bson:"curr_demand" json:"curr_demand"`
	TotalDemand    float64 `bson:"total_demand" json:"total_demand"`
	ActualPaid     float64 `bson:"actual_paid" json:"actual_paid"`
	UnpaidDemand   float64 `bson:"unpaid_demand" json:"unpaid_demand"`
	OpeningBalance float64 `bson:"opening_balance" json:"opening_balance"`
	ClosingBalance float64 `bson:"closing_balance" json:"closing_balance"`
}

// DemandDetails holds the per-category demand computed for an entry.
type DemandDetails struct {
	Loan     DemandLine `bson:"loan" json:"loan"`
	Interest DemandLine `bson:"interest" json:"interest"`
	Saving   DemandLine `bson:"saving" json:"saving"`
	FD       DemandLine `bson:"fd" json:"fd"`
}

// RecoveryEntry is one member's record within a recovery session.
type RecoveryEntry struct {
	MemberID        primitive.ObjectID `bson:"member_id" json:"member_id"`
	MemberName      string             `bson:"member_name,omitempty" json:"member_name,omitempty"`
	Attendance      string             `bson:"attendance" json:"attendance"`
	RecoveryByOther bool               `bson:"recovery_by_other" json:"recovery_by_other"`
	Amounts         Amounts            `bson:"amounts" json:"amounts"`
	PaymentMode     PaymentMode        `bson:"payment_mode" json:"payment_mode"`
	DemandDetails   DemandDetails      `bson:"demand_details" json:"demand_details"`
	Total           float64            `bson:"total" json:"total"`
	Remarks         string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// Counted reports whether the entry contributes to session totals: the
// member attended, or was absent but someone paid on their behalf.
func (e RecoveryEntry) Counted() bool {
	return e.Attendance == Present || (e.Attendance == Absent && e.RecoveryByOther)
}

// SessionTotals are the aggregates of a session's counted entries.
type SessionTotals struct {
	TotalCash   float64 `bson:"total_cash" json:"total_cash"`
	TotalOnline float64 `bson:"total_online" json:"total_online"`
	TotalAmount float64 `bson:"total_amount" json:"total_amount"`
}

// RecoverySession is a group's collection meeting on one calendar day.
//
// NOTE:
//   - Exactly one session exists per (group_id, date_key); a unique index
//     enforces it.
//   - Version is bumped on every write and used for compare-and-swap.
//   - Totals are always recomputed from the entries, never patched.
type RecoverySession struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"group_id"`
	Date       time.Time          `bson:"date" json:"date"`
	DateKey    string             `bson:"date_key" json:"date_key"`
	Recoveries []RecoveryEntry    `bson:"recoveries" json:"recoveries"`
	Totals     SessionTotals      `bson:"totals" json:"totals"`
	Status     string             `bson:"status" json:"status"`
	GroupPhoto string             `bson:"group_photo,omitempty" json:"group_photo,omitempty"`
	Version    int64              `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Entry returns the member's entry and whether it was found.
func (s RecoverySession) Entry(memberID primitive.ObjectID) (RecoveryEntry, bool) {
	for _, e := range s.Recoveries {
		if e.MemberID == memberID {
			return e, true
		}
	}
	return RecoveryEntry{}, false
}
