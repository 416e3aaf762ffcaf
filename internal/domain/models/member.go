// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoanDetails is the loan snapshot embedded on a member. It is used for
// demand calculation until a live Loan record exists for the member.
type LoanDetails struct {
	Amount            float64 `bson:"amount" json:"amount"`
	TimePeriod        int     `bson:"time_period" json:"time_period"` // months
	InstallmentAmount float64 `bson:"installment_amount" json:"installment_amount"`
	OverdueInterest   float64 `bson:"overdue_interest" json:"overdue_interest"`
}

// Member belongs to exactly one group (by reference).
//
// SavingQuotaSnapshot is set for members onboarded under an earlier
// per-member savings quota; when present it overrides Group.SavingPerMember.
type Member struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	Name    string             `bson:"name" json:"name"`
	NameCI  string             `bson:"name_ci" json:"-"`
	Phone   string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address string             `bson:"address,omitempty" json:"address,omitempty"`

	OpeningSaving       float64     `bson:"opening_saving" json:"opening_saving"`
	SavingQuotaSnapshot *float64    `bson:"saving_quota_snapshot,omitempty" json:"saving_quota_snapshot,omitempty"`
	LoanDetails         LoanDetails `bson:"loan_details" json:"loan_details"`
	OverdueInterest     float64     `bson:"overdue_interest" json:"overdue_interest"`
	FDAmount            float64     `bson:"fd_amount" json:"fd_amount"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
