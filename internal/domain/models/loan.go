// internal/domain/models/loan.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loan transaction types.
const (
	LoanTxnLoan      = "Loan"
	LoanTxnRepayment = "Repayment"
)

// Loan statuses.
const (
	LoanApproved = "approved"
	LoanPending  = "pending"
	LoanRejected = "rejected"
)

// Payment modes shared by loans and payments.
const (
	ModeCash   = "cash"
	ModeOnline = "online"
)

// Loan is one ledger transaction, not a loan account. Every approved
// disbursement is its own record and is never edited after insert. The
// member's active loan is the newest approved record of type "Loan".
type Loan struct {
	ID              primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID         primitive.ObjectID  `bson:"group_id" json:"group_id"`
	MemberID        primitive.ObjectID  `bson:"member_id" json:"member_id"`
	TransactionType string              `bson:"transaction_type" json:"transaction_type"`
	Amount          float64             `bson:"amount" json:"amount"`
	TimePeriod      int                 `bson:"time_period" json:"time_period"` // months
	Installment     float64             `bson:"installment_amount" json:"installment_amount"`
	InterestRate    float64             `bson:"interest_rate" json:"interest_rate"`
	PaymentMode     string              `bson:"payment_mode" json:"payment_mode"`
	BankID          *primitive.ObjectID `bson:"bank_id,omitempty" json:"bank_id,omitempty"`
	Status          string              `bson:"status" json:"status"`
	Date            time.Time           `bson:"date" json:"date"`
	Remarks         string              `bson:"remarks,omitempty" json:"remarks,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
