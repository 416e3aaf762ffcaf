// internal/domain/models/fd.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FD statuses. An FD moves active -> matured -> closed; it is closed when
// the payment that pays it out completes.
const (
	FDActive  = "active"
	FDMatured = "matured"
	FDClosed  = "closed"
)

// FD is a fixed deposit made by a member. InterestRate is a snapshot of the
// group's rate at creation; maturity values are computed once at creation.
type FD struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	GroupID        primitive.ObjectID `bson:"group_id" json:"group_id"`
	MemberID       primitive.ObjectID `bson:"member_id" json:"member_id"`
	Principal      float64            `bson:"principal" json:"principal"`
	TimePeriod     int                `bson:"time_period" json:"time_period"` // months
	InterestRate   float64            `bson:"interest_rate" json:"interest_rate"`
	StartDate      time.Time          `bson:"start_date" json:"start_date"`
	MaturityDate   time.Time          `bson:"maturity_date" json:"maturity_date"`
	InterestAmount float64            `bson:"interest_amount" json:"interest_amount"`
	MaturityAmount float64            `bson:"maturity_amount" json:"maturity_amount"`
	Status         string             `bson:"status" json:"status"`
	Reference      string             `bson:"reference" json:"reference"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
