package recoveries

import (
	"github.com/dalemusser/shgledger/internal/app/recovery"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// amountsRequest is the amount bag clients send. Other1 is the legacy name
// for Other; both are accepted and summed into Other.
type amountsRequest struct {
	Saving        float64 `json:"saving" validate:"gte=0"`
	Loan          float64 `json:"loan" validate:"gte=0"`
	FD            float64 `json:"fd" validate:"gte=0"`
	Interest      float64 `json:"interest" validate:"gte=0"`
	Yogdan        float64 `json:"yogdan" validate:"gte=0"`
	MemFeesSHG    float64 `json:"mem_fees_shg" validate:"gte=0"`
	MemFeesSamiti float64 `json:"mem_fees_samiti" validate:"gte=0"`
	Penalty       float64 `json:"penalty" validate:"gte=0"`
	Other         float64 `json:"other" validate:"gte=0"`
	Other1        float64 `json:"other1" validate:"gte=0"`
	Other2        float64 `json:"other2" validate:"gte=0"`
}

func (a amountsRequest) amounts() models.Amounts {
	return models.Amounts{
		Saving:        a.Saving,
		Loan:          a.Loan,
		FD:            a.FD,
		Interest:      a.Interest,
		Yogdan:        a.Yogdan,
		MemFeesSHG:    a.MemFeesSHG,
		MemFeesSamiti: a.MemFeesSamiti,
		Penalty:       a.Penalty,
		Other:         money.F(money.Sum(a.Other, a.Other1)),
		Other2:        a.Other2,
	}
}

type entryRequest struct {
	MemberID        string             `json:"member_id" validate:"required,objectid"`
	Attendance      string             `json:"attendance" validate:"omitempty,oneof=present absent"`
	RecoveryByOther bool               `json:"recovery_by_other"`
	Amounts         amountsRequest     `json:"amounts"`
	PaymentMode     models.PaymentMode `json:"payment_mode"`
	Remarks         string             `json:"remarks" validate:"max=500"`
}

// input converts a validated request; member_id has already passed the
// objectid rule.
func (e entryRequest) input() recovery.EntryInput {
	oid, _ := primitive.ObjectIDFromHex(e.MemberID)
	return recovery.EntryInput{
		MemberID:        oid,
		Attendance:      e.Attendance,
		RecoveryByOther: e.RecoveryByOther,
		Amounts:         e.Amounts.amounts(),
		PaymentMode:     e.PaymentMode,
		Remarks:         htmlsanitize.PlainText(e.Remarks),
	}
}

type registerRequest struct {
	Date       string         `json:"date" validate:"required,ledgerdate"`
	Recoveries []entryRequest `json:"recoveries" validate:"dive"`
}

type upsertRequest struct {
	Date  string       `json:"date" validate:"required,ledgerdate"`
	Entry entryRequest `json:"entry"`
}

type photoRequest struct {
	Date  string `json:"date" validate:"required,ledgerdate"`
	Photo string `json:"photo" validate:"required,max=1024"`
}

type dateQuery struct {
	Date string `json:"date" validate:"required,ledgerdate"`
}

type rangeQuery struct {
	From string `json:"from" validate:"required,ledgerdate"`
	To   string `json:"to" validate:"required,ledgerdate"`
}

type priorQuery struct {
	MemberID string `json:"member_id" validate:"required,objectid"`
	Date     string `json:"date" validate:"required,ledgerdate"`
}
