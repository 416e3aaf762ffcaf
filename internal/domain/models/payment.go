// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment kinds.
const (
	PaymentWithdrawal = "withdrawal"
	PaymentFDMaturity = "fd_maturity"
)

// Payment origins. Admin-originated payments start out approved.
const (
	OriginAdmin = "admin"
	OriginGroup = "group"
)

// Payment statuses: pending -> approved -> completed, or pending -> rejected.
const (
	PaymentPending   = "pending"
	PaymentApproved  = "approved"
	PaymentCompleted = "completed"
	PaymentRejected  = "rejected"
)

// Payment is a withdrawal or FD maturity payout request.
//
// FDClaim mirrors FDID while the payment is not rejected. A unique sparse
// index on fd_claim keeps at most one live payment per FD.
type Payment struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID     primitive.ObjectID  `bson:"group_id" json:"group_id"`
	MemberID    primitive.ObjectID  `bson:"member_id" json:"member_id"`
	FDID        *primitive.ObjectID `bson:"fd_id,omitempty" json:"fd_id,omitempty"`
	FDClaim     *primitive.ObjectID `bson:"fd_claim,omitempty" json:"-"`
	Kind        string              `bson:"kind" json:"kind"`
	Amount      float64             `bson:"amount" json:"amount"`
	PaymentMode string              `bson:"payment_mode" json:"payment_mode"`
	BankID      *primitive.ObjectID `bson:"bank_id,omitempty" json:"bank_id,omitempty"`
	Origin      string              `bson:"origin" json:"origin"`
	Status      string              `bson:"status" json:"status"`
	Reference   string              `bson:"reference" json:"reference"`
	Remarks     string              `bson:"remarks,omitempty" json:"remarks,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case PaymentPending:
		return to == PaymentApproved || to == PaymentRejected
	case PaymentApproved:
		return to == PaymentCompleted
	}
	return false
}
